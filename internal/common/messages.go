package common

import "errors"

// UserMessage maps an error to the text shown to link recipients and owners.
// Unknown errors get a generic message so internals never leak.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidToken):
		return "Invalid or expired link!"
	case errors.Is(err, ErrLinkExpired):
		return "This link has expired. Please request a new one."
	case errors.Is(err, ErrOTPMismatch):
		return "Invalid email or OTP!"
	case errors.Is(err, ErrOTPExpired):
		return "OTP expired or not requested. Please request a new OTP."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email!"
	case errors.Is(err, ErrDelivery):
		return "Could not send the OTP email. Please try again later."
	case errors.Is(err, ErrIntegrity):
		return "Decryption failed. Invalid key or file corrupted."
	case errors.Is(err, ErrInvalidFilename):
		return "No selected file!"
	case errors.Is(err, ErrExtensionNotAllowed):
		return "File type is not allowed."
	case errors.Is(err, ErrFileTooLarge):
		return "File is too large."
	case errors.Is(err, ErrFileIsEmpty):
		return "Uploaded file is empty."
	case errors.Is(err, ErrorNotFound):
		return "File not found."
	case errors.Is(err, ErrorForbidden):
		return "Unauthorized access"
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidAccessToken), errors.Is(err, ErrTokenExpired):
		return "Authentication required."
	default:
		return "Internal error. Please try again later."
	}
}
