package httpapi

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/gin-gonic/gin"
)

const sessionIDBytes = 32

var sessionPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

type otpRequest struct {
	Email string `form:"email" json:"email"`
}

type downloadRequest struct {
	Email string `form:"email" json:"email"`
	OTP   string `form:"otp" json:"otp"`
}

type linkInfoResponse struct {
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}

// session returns the recipient session id, issuing a new cookie when the
// request carries none (or a malformed one).
func (h *Handler) session(c *gin.Context) (string, error) {
	if id, err := c.Cookie(common.SessionCookieName); err == nil && sessionPattern.MatchString(id) {
		return id, nil
	}

	id, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.SessionCookieName, id, 0, "/s/", "", h.secureCookie, true)
	return id, nil
}

func (h *Handler) linkInfo(c *gin.Context) {
	rec, err := h.gate.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.session(c); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, linkInfoResponse{Filename: rec.Filename, ExpiresAt: *rec.TokenExpiresAt})
}

func (h *Handler) requestOTP(c *gin.Context) {
	// an unreadable body counts as empty so the link is still checked first
	var req otpRequest
	if err := c.ShouldBind(&req); err != nil {
		req = otpRequest{}
	}

	sid, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if _, err := h.gate.RequestOTP(c.Request.Context(), sid, c.Param("token"), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "OTP sent to your email."})
}

func (h *Handler) downloadFile(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBind(&req); err != nil {
		req = downloadRequest{}
	}

	sid, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	rec, err := h.gate.Authorize(ctx, sid, c.Param("token"), req.Email, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}

	d, err := h.download.Open(ctx, rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer d.Close()

	h.logger.Info(ctx, "file downloaded", "file_id", rec.ID)
	c.DataFromReader(http.StatusOK, d.Size, contentType(d.Filename), d, map[string]string{
		"Content-Disposition": contentDisposition(d.Filename),
		"Cache-Control":       "no-store",
	})
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// contentDisposition carries the name both as a quoted fallback and in
// RFC 5987 form.
func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, name, url.PathEscape(name))
}
