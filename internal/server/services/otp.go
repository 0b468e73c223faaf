package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/notify"
	"github.com/dmitrijs2005/securelink/internal/server/otp"
)

const (
	OTPSubject    = "Your Secure File Access OTP"
	defaultOTPTTL = 5 * time.Minute
)

var otpMax = big.NewInt(1_000_000)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPManager issues and verifies one-time codes that bind a recipient's
// email to a link token within one session.
type OTPManager struct {
	store   otp.Store
	sender  notify.Sender
	ttl     time.Duration
	strict  bool
	log     logging.Logger
	now     func() time.Time
	newCode func() (string, error)
}

func NewOTPManager(store otp.Store, sender notify.Sender, cfg *config.Config, log logging.Logger) *OTPManager {
	ttl := cfg.OTPTTL
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPManager{
		store:   store,
		sender:  sender,
		ttl:     ttl,
		strict:  cfg.OTPDeliveryPolicy == config.DeliveryStrict,
		log:     log.With("module", "otp"),
		now:     time.Now,
		newCode: generateCode,
	}
}

// NormalizeEmail validates an address and lower-cases it.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", common.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func otpBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your OTP for file access is %s. It is valid for %d minutes.", code, int(ttl.Minutes()))
}

// Request creates a fresh challenge for sessionID, replacing any pending
// one, and sends the code to email. It returns the code so callers other
// than the HTTP surface (tests, tooling) can observe it.
//
// When delivery fails the challenge is kept and the failure only logged,
// unless the strict delivery policy is configured; then the challenge is
// discarded and common.ErrDelivery returned.
func (m *OTPManager) Request(ctx context.Context, sessionID, token, email string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	code, err := m.newCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	c := models.OTPChallenge{
		Code:      code,
		Email:     email,
		Token:     token,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, sessionID, c); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	if err := m.sender.Send(ctx, email, OTPSubject, otpBody(code, m.ttl)); err != nil {
		if m.strict {
			_ = m.store.Delete(ctx, sessionID)
			return "", fmt.Errorf("%w: %w", common.ErrDelivery, err)
		}
		m.log.Warn(ctx, "otp delivery failed", "error", err)
	}

	m.log.Debug(ctx, "otp issued", "expires_at", c.ExpiresAt)
	return code, nil
}

// Verify checks a submitted code. A missing or expired challenge yields
// common.ErrOTPExpired (and is discarded); any mismatch of token, email or
// code yields common.ErrOTPMismatch and leaves the challenge pending. A
// successful check consumes the challenge.
func (m *OTPManager) Verify(ctx context.Context, sessionID, token, email, code string) error {
	c, ok, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if !ok {
		return common.ErrOTPExpired
	}
	if c.Expired(m.now()) {
		_ = m.store.Delete(ctx, sessionID)
		return common.ErrOTPExpired
	}

	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	match := subtle.ConstantTimeCompare([]byte(c.Code), []byte(code))
	match &= subtle.ConstantTimeCompare([]byte(c.Token), []byte(token))
	match &= subtle.ConstantTimeCompare([]byte(c.Email), []byte(email))
	if match != 1 {
		return common.ErrOTPMismatch
	}

	consumed, err := m.store.Consume(ctx, sessionID, c)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if !consumed {
		return common.ErrOTPExpired
	}
	return nil
}

// Sweep drops expired challenges from the store.
func (m *OTPManager) Sweep(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.now())
}
