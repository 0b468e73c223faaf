package models

import "time"

// OTPChallenge is a pending one-time code bound to a link token and the
// requester's email.
type OTPChallenge struct {
	Code      string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the challenge deadline has passed at now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
