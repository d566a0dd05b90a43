package templates

import "time"

// TemplateResponse is the outward-facing representation of a template.
type TemplateResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FileName     string    `json:"fileName"`
	Placeholders []string  `json:"placeholders"`
	Duplicates   []string  `json:"duplicates,omitempty"`
	Enabled      bool      `json:"enabled"`
	HasPreview   bool      `json:"hasPreview"`
	CreatedAt    time.Time `json:"createdAt"`
}

type updateTemplateRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func toResponse(t Template) TemplateResponse {
	placeholders := t.Placeholders
	if placeholders == nil {
		placeholders = []string{}
	}
	return TemplateResponse{
		ID:           t.ID,
		Name:         t.Name,
		FileName:     t.FileName,
		Placeholders: placeholders,
		Enabled:      t.Enabled,
		HasPreview:   t.PreviewKey != "",
		CreatedAt:    t.CreatedAt,
	}
}
