package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/certificate/render"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/server/middleware"
	"verifycert-backend/internal/shared/server/respond"
	"verifycert-backend/internal/shared/server/validate"
	"verifycert-backend/internal/shared/storage/object"
	"verifycert-backend/internal/templates"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc     *Service
	BaseURL string
}

// NewHandler constructs a Handler. baseURL is the public site used in verify links.
func NewHandler(svc *Service, baseURL string) *Handler {
	return &Handler{Svc: svc, BaseURL: baseURL}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/templates/:id/generate", h.generate)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.file)
}

func (h *Handler) generate(c *gin.Context) {
	templateID := c.Param("id")
	c.Set(middleware.TemplateIDKey, templateID)

	var req generateRequest
	if !validate.BindJSON(c, &req) {
		return
	}

	doc, err := h.Svc.Generate(c.Request.Context(), GenerateRequest{
		TemplateID: templateID,
		Values:     req.Values,
		QR:         req.QR.position(),
	})
	if err != nil {
		WriteGenerationError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, doc.ID)

	respond.Created(c, GenerateResponse{
		DocumentID: doc.ID,
		FileURL:    FileURL(doc.ID),
		VerifyURL:  stamp.VerifyURL(h.BaseURL, doc.ID),
	})
}

func (h *Handler) list(c *gin.Context) {
	limit := defaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	limit, offset = normalizePage(limit, offset)

	docs, total, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	items := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toResponse(doc, h.BaseURL))
	}
	respond.OK(c, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	respond.OK(c, toResponse(doc, h.BaseURL))
}

func (h *Handler) file(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)

	doc, rc, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	defer rc.Close()

	respond.Stream(c, extract.MimePDF, respond.Attachment, doc.FileName, rc)
}

func writeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, object.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
	}
}

// WriteGenerationError maps template lookup, validation, template format and
// external tool failures to the error envelope.
func WriteGenerationError(c *gin.Context, err error) {
	var missing *MissingValuesError
	switch {
	case errors.Is(err, templates.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
	case errors.Is(err, templates.ErrDisabled):
		respond.Error(c, http.StatusBadRequest, "template_disabled", err.Error(), nil)
	case errors.As(err, &missing):
		respond.Error(c, http.StatusBadRequest, "validation_error", missing.Error(), gin.H{"missing": missing.Fields})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, render.ErrTemplateFormat):
		respond.Error(c, http.StatusUnprocessableEntity, "template_format_error", err.Error(), nil)
	case errors.Is(err, convert.ErrConverterNotFound):
		respond.Error(c, http.StatusInternalServerError, "converter_unavailable", err.Error(), nil)
	case errors.Is(err, convert.ErrConversionFailed):
		var details any
		if output, ok := convert.IsToolError(err); ok && output != "" {
			details = gin.H{"output": output}
		}
		respond.Error(c, http.StatusInternalServerError, "conversion_failed", err.Error(), details)
	case errors.Is(err, convert.ErrOutputMissing):
		respond.Error(c, http.StatusInternalServerError, "conversion_output_missing", err.Error(), nil)
	case errors.Is(err, stamp.ErrStampFailed):
		respond.Error(c, http.StatusInternalServerError, "stamp_failed", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "certificate generation failed", nil)
	}
}
