package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger(), corsMiddleware())

	r.GET("/health", h.health)

	link := r.Group("/s/:token")
	link.GET("", h.linkInfo)
	link.POST("/otp", h.requestOTP)
	link.POST("/download", h.downloadFile)

	api := r.Group("/api", gzipMiddleware(), h.requireOwner())
	api.POST("/files", h.uploadFile)
	api.GET("/files", h.listFiles)
	api.POST("/files/:id/share", h.shareFile)

	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}
