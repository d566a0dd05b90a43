package verification

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"verifycert-backend/internal/documents"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/telemetry"
	"verifycert-backend/internal/templates"
)

const notFoundMessage = "Certificate not found or invalid"

// Result is the public answer to a verification lookup.
type Result struct {
	Valid        bool              `json:"valid"`
	Message      string            `json:"message,omitempty"`
	TemplateName string            `json:"templateName,omitempty"`
	IssuedAt     *time.Time        `json:"issuedAt,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// DocumentReader loads issued documents by id.
type DocumentReader interface {
	Get(ctx context.Context, id string) (documents.Document, error)
}

// TemplateReader loads templates by id.
type TemplateReader interface {
	Get(ctx context.Context, id string) (templates.Template, error)
}

// Cache stores positive results. Implementations must treat failures as misses.
type Cache interface {
	Get(ctx context.Context, id string) (Result, bool)
	Set(ctx context.Context, id string, r Result)
}

type Service struct {
	Documents DocumentReader
	Templates TemplateReader
	Cache     Cache
}

// Verify never fails: unknown, malformed and unreadable ids all come back as
// an invalid result.
func (s *Service) Verify(ctx context.Context, id string) Result {
	if _, err := uuid.Parse(id); err != nil {
		return invalid()
	}
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, id); ok {
			return cached
		}
	}

	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, documents.ErrNotFound) {
			telemetry.Error("verify.lookup_failed", map[string]any{"document_id": id, "error": err})
		}
		return invalid()
	}

	name := ""
	if tpl, err := s.Templates.Get(ctx, doc.TemplateID); err == nil {
		name = tpl.Name
	} else {
		telemetry.Warn("verify.template_lookup_failed", map[string]any{
			"document_id": id,
			"template_id": doc.TemplateID,
			"error":       err,
		})
	}

	issued := doc.CreatedAt
	res := Result{
		Valid:        true,
		TemplateName: name,
		IssuedAt:     &issued,
		Data:         publicData(doc.Data),
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, id, res)
	}
	return res
}

func invalid() Result {
	return Result{Valid: false, Message: notFoundMessage}
}

// publicData drops the system fields from a document's data.
func publicData(data map[string]string) map[string]string {
	out := maps.Clone(data)
	if out == nil {
		out = map[string]string{}
	}
	for _, token := range extract.ReservedTokens {
		delete(out, token)
	}
	return out
}
