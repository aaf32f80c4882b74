package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	"github.com/toyohara-midori/dcin/internal/infrastructure/http/v1/dto"
	"github.com/toyohara-midori/dcin/internal/ingest"
)

// IngestHandler serves the upload pipeline: stage, confirm, commit, discard.
type IngestHandler struct {
	*BaseHandler
	service *ingest.Service
}

// NewIngestHandler creates the ingest handler.
func NewIngestHandler(base *BaseHandler, service *ingest.Service) *IngestHandler {
	return &IngestHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the ingest endpoints onto the group.
func (h *IngestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.Upload)
	rg.GET("/batches/:id", h.Confirm)
	rg.POST("/batches/:id/commit", h.Commit)
	rg.DELETE("/batches/:id", h.Discard)
}

// Upload handles POST /uploads: multipart file field "file", optional form
// field "mode". A successful response means the batch is staged and awaiting
// confirmation.
func (h *IngestHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	mode, err := ingest.ParseMode(c.PostForm("mode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("missing upload file").WithDetail("error", err.Error()))
		return
	}
	if fileHeader.Size > ingest.MaxUploadBytes {
		h.Error(c, apperror.NewValidation("upload file too large").
			WithDetail("max_bytes", ingest.MaxUploadBytes))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, ingest.MaxUploadBytes+1))
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	result, err := h.service.Stage(ctx, mode, h.GetUserID(c), data)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.StageResponse{
		BatchID:  result.BatchID,
		RowCount: result.RowCount,
	})
}

// Confirm handles GET /batches/:id: re-runs the bulk check and returns every
// row with inline error annotations.
func (h *IngestHandler) Confirm(c *gin.Context) {
	mode, err := ingest.ParseMode(c.Query("mode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), c.Param("id"), mode)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ConfirmResponse{
		BatchID:   result.BatchID,
		HasErrors: result.HasErrors,
		Rows:      result.Rows,
	})
}

// Commit handles POST /batches/:id/commit: turns the staged batch into
// numbered vouchers.
func (h *IngestHandler) Commit(c *gin.Context) {
	mode, err := ingest.ParseMode(c.Query("mode"))
	if err != nil {
		h.Error(c, err)
		return
	}

	batchID := c.Param("id")
	vouchers, err := h.service.Commit(c.Request.Context(), batchID, h.GetUserID(c), mode)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CommitResponse{BatchID: batchID, Vouchers: vouchers})
}

// Discard handles DELETE /batches/:id: abandons a staged batch.
func (h *IngestHandler) Discard(c *gin.Context) {
	if err := h.service.Discard(c.Request.Context(), c.Param("id")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
