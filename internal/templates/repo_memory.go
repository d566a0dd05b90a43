package templates

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Template
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Template)}
}

// Create stores a template, rejecting a name that is already taken.
func (r *MemoryRepo) Create(ctx context.Context, t Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.Name == t.Name {
			return ErrDuplicateName
		}
	}
	t.Placeholders = slices.Clone(t.Placeholders)
	r.data[t.ID] = t
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.data[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	t.Placeholders = slices.Clone(t.Placeholders)
	return t, nil
}

// List returns all templates newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Template, 0, len(r.data))
	for _, t := range r.data {
		t.Placeholders = slices.Clone(t.Placeholders)
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) SetEnabled(ctx context.Context, id string, enabled bool) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	t.Enabled = enabled
	r.data[id] = t
	t.Placeholders = slices.Clone(t.Placeholders)
	return t, nil
}

func (r *MemoryRepo) SetPreview(ctx context.Context, id, previewKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	t.PreviewKey = previewKey
	r.data[id] = t
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data), nil
}

var _ Repo = (*MemoryRepo)(nil)
