package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fileforge-backend/internal/models"
	"fileforge-backend/internal/storage"
)

// immutableCache suits content that never changes after it is written:
// ledger records are append-only, so a resolved reference always yields the
// same bytes.
const immutableCache = "public, max-age=31536000, immutable"

type ContentHandler struct {
	store ContentStore
	log   *slog.Logger
}

func NewContentHandler(store ContentStore, log *slog.Logger) *ContentHandler {
	return &ContentHandler{store: store, log: log}
}

// Resolve godoc
// @Summary     Resolve a storage reference
// @Description Resolves an opaque storage reference ("inline:<id>" or an object-store URL) to the stored bytes or a redirect, regardless of which tier holds them.
// @Tags        content
// @Produce     application/octet-stream
// @Param       reference path string true "Opaque storage reference"
// @Param       disposition query string false "inline or attachment" default(inline)
// @Success     200 {file} binary
// @Success     302 {string} string "redirect to external storage"
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /content/{reference} [get]
func (h *ContentHandler) Resolve(c *gin.Context) {
	raw := strings.TrimPrefix(c.Param("reference"), "/")

	ref, err := storage.ParseReference(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid storage reference",
			Message: err.Error(),
		})
		return
	}

	content, err := h.store.Resolve(c.Request.Context(), ref)
	if err != nil {
		h.log.Warn("reference resolution failed", "reference", raw, "error", err)
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "content not found"})
		return
	}

	if content.RedirectURL != "" {
		c.Redirect(http.StatusFound, content.RedirectURL)
		return
	}

	disposition := "inline"
	if c.Query("disposition") == "attachment" {
		disposition = "attachment"
	}

	c.Header("Cache-Control", immutableCache)
	c.Header("Content-Disposition", contentDisposition(disposition, content.FileName))
	c.Data(http.StatusOK, content.MimeType, content.Data)
}
