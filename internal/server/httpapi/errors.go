package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error to the response status.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrLinkExpired), errors.Is(err, common.ErrOTPExpired):
		return http.StatusGone
	case errors.Is(err, common.ErrOTPMismatch),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidAccessToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrInvalidEmail),
		errors.Is(err, common.ErrInvalidFilename),
		errors.Is(err, common.ErrExtensionNotAllowed),
		errors.Is(err, common.ErrFileIsEmpty):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrFileTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrDelivery):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
	}

	msg := common.UserMessage(err)
	if code == http.StatusRequestEntityTooLarge {
		msg = common.UserMessage(common.ErrFileTooLarge)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
