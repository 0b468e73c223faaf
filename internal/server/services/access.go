package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/repomanager"
)

var tokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// AccessGate decides whether a recipient may reach a shared file. Checks
// run in a fixed order (link exists, link not expired, OTP valid) and stop
// at the first failure.
type AccessGate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	otp         *OTPManager
	now         func() time.Time
}

func NewAccessGate(db *sql.DB, m repomanager.RepositoryManager, otp *OTPManager) *AccessGate {
	return &AccessGate{db: db, repomanager: m, otp: otp, now: time.Now}
}

// Resolve looks up the record behind token. Malformed and unknown tokens
// both yield common.ErrInvalidToken; a token past its expiry yields
// common.ErrLinkExpired. Expired records are left untouched.
func (g *AccessGate) Resolve(ctx context.Context, token string) (*models.FileRecord, error) {
	if !tokenPattern.MatchString(token) {
		return nil, common.ErrInvalidToken
	}

	rec, err := g.repomanager.Files(g.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	if !rec.LinkActive(g.now()) {
		return nil, common.ErrLinkExpired
	}
	return rec, nil
}

// RequestOTP resolves token and, if the link is usable, sends an OTP for
// it to email.
func (g *AccessGate) RequestOTP(ctx context.Context, sessionID, token, email string) (*models.FileRecord, error) {
	rec, err := g.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := g.otp.Request(ctx, sessionID, token, email); err != nil {
		return nil, err
	}
	return rec, nil
}

// Authorize runs every check and returns the record when the recipient may
// download it.
func (g *AccessGate) Authorize(ctx context.Context, sessionID, token, email, code string) (*models.FileRecord, error) {
	rec, err := g.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.otp.Verify(ctx, sessionID, token, email, code); err != nil {
		return nil, err
	}
	return rec, nil
}
