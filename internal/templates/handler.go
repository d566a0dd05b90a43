package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/shared/server/respond"
)

const defaultMaxUploadSize = 10 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches template routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/templates", h.upload)
	rg.GET("/templates", h.list)
	rg.GET("/templates/:id", h.get)
	rg.PATCH("/templates/:id", h.update)
	rg.GET("/templates/:id/sample", h.sample)
	rg.GET("/templates/:id/preview", h.preview)
}

func (h *Handler) upload(c *gin.Context) {
	if c.Request.ContentLength > h.MaxUploadBytes {
		tooLarge(c, h.MaxUploadBytes)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge(c, h.MaxUploadBytes)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	res, err := h.Svc.Upload(c.Request.Context(), c.PostForm("name"), fileHeader.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.TemplateIDKey, res.Template.ID)

	body := toResponse(res.Template)
	body.Duplicates = res.Duplicates
	respond.Created(c, body)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]TemplateResponse, 0, len(items))
	for _, t := range items {
		resp = append(resp, toResponse(t))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.TemplateIDKey, id)

	t, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(t))
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.TemplateIDKey, id)

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "enabled is required", []map[string]string{
			{"field": "enabled", "issue": "required"},
		})
		return
	}

	t, err := h.Svc.SetEnabled(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(t))
}

func (h *Handler) sample(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.TemplateIDKey, id)

	file, err := h.Svc.Sample(c.Request.Context(), id, c.DefaultQuery("format", SampleCSV))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Bytes(c, file.ContentType, respond.Attachment, file.FileName, file.Data)
}

func (h *Handler) preview(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.TemplateIDKey, id)

	t, rc, err := h.Svc.OpenPreview(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	respond.Stream(c, extract.MimePDF, respond.Inline, "preview_"+t.ID+".pdf", rc)
}

func tooLarge(c *gin.Context, limit int64) {
	respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"limitBytes": limit})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
	case errors.Is(err, ErrNoPreview):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrDuplicateName):
		respond.Error(c, http.StatusConflict, "duplicate_name", err.Error(), nil)
	case errors.Is(err, extract.ErrNoPlaceholders):
		respond.Error(c, http.StatusBadRequest, "no_placeholders", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "template request failed", nil)
	}
}
