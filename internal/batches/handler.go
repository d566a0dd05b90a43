package batches

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/documents"
	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/shared/server/respond"
	"verifycert-backend/internal/shared/server/validate"
)

const defaultMaxUploadSize = 10 << 20

type bulkForm struct {
	QRX *float64 `form:"qrX" validate:"omitempty,gte=0"`
	QRY *float64 `form:"qrY" validate:"omitempty,gte=0"`
}

func (f bulkForm) position() *stamp.Position {
	if f.QRX == nil || f.QRY == nil {
		return nil
	}
	return &stamp.Position{X: *f.QRX, Y: *f.QRY}
}

// Handler wires HTTP handlers to the processor.
type Handler struct {
	Proc           *Processor
	MaxUploadBytes int64
}

func NewHandler(proc *Processor, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Proc: proc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches batch routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/templates/:id/bulk", h.bulk)
	rg.GET("/batches/:id/archive", h.archive)
}

func (h *Handler) bulk(c *gin.Context) {
	templateID := c.Param("id")
	c.Set(middleware.TemplateIDKey, templateID)

	if c.Request.ContentLength > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"limitBytes": h.MaxUploadBytes})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	var form bulkForm
	if err := c.ShouldBind(&form); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "qrX and qrY must be numbers", nil)
		return
	}
	if !validate.Check(c, &form) {
		return
	}
	if (form.QRX == nil) != (form.QRY == nil) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "qrX and qrY must be given together", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	rows, err := ParseRows(fileHeader.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.Proc.Run(c.Request.Context(), Request{
		TemplateID: templateID,
		Rows:       rows,
		QR:         form.position(),
	})
	var failed *BatchFailedError
	if errors.As(err, &failed) {
		c.Set(middleware.BatchIDKey, failed.BatchID)
		respond.Error(c, http.StatusUnprocessableEntity, "batch_failed", failed.Error(), failed.Errors)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.BatchIDKey, summary.BatchID)
	respond.OK(c, summary)
}

func (h *Handler) archive(c *gin.Context) {
	batchID := c.Param("id")
	c.Set(middleware.BatchIDKey, batchID)

	path, err := h.Proc.ArchivePath(batchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(path, "certificates_"+batchID+".zip")
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrArchiveNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		documents.WriteGenerationError(c, err)
	}
}
