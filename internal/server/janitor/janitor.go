// Package janitor periodically removes leftovers: decrypted scratch copies,
// cached containers and expired OTP challenges.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/robfig/cron/v3"
)

type FileSweeper interface {
	SweepScratch(maxAge time.Duration) (int, error)
	SweepCache(maxAge time.Duration) (int, error)
}

type OTPSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Janitor struct {
	cron   *cron.Cron
	files  FileSweeper
	otp    OTPSweeper
	maxAge time.Duration
	log    logging.Logger
}

// New schedules the sweep on cfg.JanitorSchedule (standard cron syntax or
// descriptors such as "@every 10m"). The scheduler is idle until Start.
func New(cfg *config.Config, files FileSweeper, otp OTPSweeper, log logging.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		files:  files,
		otp:    otp,
		maxAge: cfg.ScratchMaxAge,
		log:    log.With("module", "janitor"),
	}

	_, err := j.cron.AddFunc(cfg.JanitorSchedule, func() {
		// cron jobs have no caller context
		_ = j.RunOnce(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", cfg.JanitorSchedule, err)
	}
	return j, nil
}

// RunOnce performs every sweep and reports all failures together. A failing
// sweep does not prevent the others.
func (j *Janitor) RunOnce(ctx context.Context) error {
	var errs []error

	if n, err := j.files.SweepScratch(j.maxAge); err != nil {
		errs = append(errs, fmt.Errorf("sweep scratch: %w", err))
	} else if n > 0 {
		j.log.Info(ctx, "scratch files removed", "count", n)
	}

	if n, err := j.files.SweepCache(j.maxAge); err != nil {
		errs = append(errs, fmt.Errorf("sweep cache: %w", err))
	} else if n > 0 {
		j.log.Info(ctx, "cached containers removed", "count", n)
	}

	if n, err := j.otp.Sweep(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sweep otp: %w", err))
	} else if n > 0 {
		j.log.Debug(ctx, "expired otp challenges removed", "count", n)
	}

	err := errors.Join(errs...)
	if err != nil {
		j.log.Error(ctx, "janitor run failed", "error", err)
	}
	return err
}

// Start runs one sweep right away and then follows the schedule.
func (j *Janitor) Start(ctx context.Context) {
	j.cron.Start()
	go func() { _ = j.RunOnce(ctx) }()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}
