// Package httpapi is the HTTP surface: recipient link pages, OTP requests
// and downloads, plus the JWT-protected owner API.
package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/services"
)

// multipartOverhead is the allowance for form boundaries and headers on
// top of the upload size limit.
const multipartOverhead = 1 << 20

type Handler struct {
	files        *services.FileService
	gate         *services.AccessGate
	download     *services.DownloadService
	jwtSecret    []byte
	maxBody      int64
	secureCookie bool
	logger       logging.Logger
	now          func() time.Time
}

func NewHandler(cfg *config.Config, files *services.FileService, gate *services.AccessGate,
	download *services.DownloadService, l logging.Logger) *Handler {
	var maxBody int64
	if cfg.MaxUploadSize > 0 {
		maxBody = cfg.MaxUploadSize + multipartOverhead
	}
	return &Handler{
		files:        files,
		gate:         gate,
		download:     download,
		jwtSecret:    []byte(cfg.SecretKey),
		maxBody:      maxBody,
		secureCookie: strings.HasPrefix(cfg.PublicBaseURL, "https://"),
		logger:       l.With("module", "http"),
		now:          time.Now,
	}
}
