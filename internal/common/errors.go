// Package common defines shared constants and sentinel errors used across
// the securelink server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Owner auth errors (invalid or malformed access token).
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrTokenExpired       = errors.New("token expired")
)

// Share link errors.
var (
	// ErrInvalidToken means no file record matches the presented link token.
	ErrInvalidToken = errors.New("invalid or expired link")

	// ErrLinkExpired means the link exists but its validity window has elapsed.
	ErrLinkExpired = errors.New("link expired")
)

// OTP challenge errors.
var (
	// ErrOTPMismatch covers any token, email or code mismatch. Which field
	// differed is not reported.
	ErrOTPMismatch = errors.New("invalid email or otp")

	// ErrOTPExpired means no pending challenge exists for the session, either
	// because it was consumed, replaced or its window elapsed.
	ErrOTPExpired = errors.New("otp expired")

	ErrInvalidEmail = errors.New("invalid email")

	// ErrDelivery is returned only under the strict delivery policy.
	ErrDelivery = errors.New("otp delivery failed")
)

// Storage and cipher errors.
var (
	// ErrIntegrity means a container is truncated, corrupted or sealed under
	// another key.
	ErrIntegrity = errors.New("decryption failed, invalid key or corrupted data")

	// ErrIO wraps storage failures (unreadable source, unwritable destination).
	ErrIO = errors.New("storage unavailable")

	ErrInvalidFilename     = errors.New("invalid filename")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileIsEmpty         = errors.New("file is empty")
)
