// Package notify delivers short plain-text messages (OTP codes) to email
// recipients.
package notify

import (
	"context"

	"github.com/dmitrijs2005/securelink/internal/logging"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes messages to the log instead of delivering them. It is
// meant for development: the OTP ends up in the server log.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("module", "notify")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info(ctx, "message not delivered, logged instead", "to", to, "subject", subject, "body", body)
	return nil
}
