package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/server/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

const ownerIDKey = "ownerID"

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cors.New(cfg)
}

func gzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression)
}

// requestLogger logs the route pattern rather than the raw path so link
// tokens never reach the logs.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := h.now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireOwner authenticates the Bearer JWT and stores the owner id.
func (h *Handler) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			h.fail(c, common.ErrorUnauthorized)
			return
		}

		ownerID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), h.jwtSecret)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}

func ownerID(c *gin.Context) string {
	return c.GetString(ownerIDKey)
}
