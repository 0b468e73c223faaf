package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) uploadFile(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			h.fail(c, err)
			return
		}
		h.fail(c, common.ErrInvalidFilename)
		return
	}
	if fh.Size == 0 {
		h.fail(c, common.ErrFileIsEmpty)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	rec, err := h.files.Upload(c.Request.Context(), ownerID(c), fh.Filename, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) listFiles(c *gin.Context) {
	recs, err := h.files.List(c.Request.Context(), ownerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if recs == nil {
		recs = []*models.FileRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"files": recs})
}

func (h *Handler) shareFile(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(c, common.ErrorNotFound)
		return
	}

	link, err := h.files.Share(c.Request.Context(), ownerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
