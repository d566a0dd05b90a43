package templates

import "context"

// Repo defines persistence operations for templates.
type Repo interface {
	Create(ctx context.Context, t Template) error
	Get(ctx context.Context, id string) (Template, error)
	List(ctx context.Context) ([]Template, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (Template, error)
	SetPreview(ctx context.Context, id, previewKey string) error
	Count(ctx context.Context) (int, error)
}
