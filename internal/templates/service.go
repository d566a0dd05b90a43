package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/storage/object"
	"verifycert-backend/internal/shared/telemetry"
	"verifycert-backend/internal/shared/util"
)

const (
	maxNameLength     = 200
	templateNamespace = "templates"
	previewNamespace  = "previews"
)

// Service contains business logic for templates.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	// Previewer renders an upload to PDF for the preview endpoint. Nil disables previews.
	Previewer convert.Converter
	WorkDir   string
}

// UploadResult is a stored template plus the placeholders that appeared more than once.
type UploadResult struct {
	Template   Template
	Duplicates []string
}

// Upload validates a DOCX template, stores it and records its placeholders.
func (s *Service) Upload(ctx context.Context, name, fileName string, r io.Reader) (UploadResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return UploadResult{}, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLength)
	}
	safeName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return UploadResult{}, err
	}
	if len(data) == 0 {
		return UploadResult{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if extract.DetectMimeType("", safeName, data) != extract.MimeDOCX {
		return UploadResult{}, fmt.Errorf("%w: template must be a .docx file", ErrInvalidInput)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, extract.MimeDOCX, safeName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: unreadable template: %v", ErrInvalidInput, err)
	}
	scan, err := extract.RequirePlaceholders(text)
	if err != nil {
		return UploadResult{}, err
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, templateNamespace, safeName, bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, err
	}

	t := Template{
		ID:           uuid.NewString(),
		Name:         name,
		FileName:     safeName,
		StorageKey:   storageKey,
		MimeType:     mimeType,
		SizeBytes:    size,
		Placeholders: scan.Placeholders,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		_ = s.Store.Delete(ctx, storageKey)
		return UploadResult{}, err
	}

	if key := s.buildPreview(ctx, t, data); key != "" {
		t.PreviewKey = key
	}

	telemetry.Info("template.uploaded", map[string]any{
		"template_id":  t.ID,
		"name":         t.Name,
		"placeholders": len(t.Placeholders),
		"duplicates":   scan.Duplicates,
		"has_preview":  t.PreviewKey != "",
	})
	return UploadResult{Template: t, Duplicates: scan.Duplicates}, nil
}

// List returns all templates newest first.
func (s *Service) List(ctx context.Context) ([]Template, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Template{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Usable returns the template when it exists and is enabled.
func (s *Service) Usable(ctx context.Context, id string) (Template, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if !t.Enabled {
		return Template{}, ErrDisabled
	}
	return t, nil
}

func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) (Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Template{}, ErrNotFound
	}
	t, err := s.Repo.SetEnabled(ctx, id, enabled)
	if err != nil {
		return Template{}, err
	}
	telemetry.Info("template.enabled_changed", map[string]any{"template_id": id, "enabled": enabled})
	return t, nil
}

// CopyTo writes the stored template file to path.
func (s *Service) CopyTo(ctx context.Context, t Template, path string) error {
	rc, err := s.Store.Open(ctx, t.StorageKey)
	if err != nil {
		return fmt.Errorf("open template %s: %w", t.ID, err)
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// OpenPreview returns the stored preview PDF of a template.
func (s *Service) OpenPreview(ctx context.Context, id string) (Template, io.ReadCloser, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Template{}, nil, err
	}
	if t.PreviewKey == "" {
		return Template{}, nil, ErrNoPreview
	}
	rc, err := s.Store.Open(ctx, t.PreviewKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Template{}, nil, ErrNoPreview
		}
		return Template{}, nil, err
	}
	return t, rc, nil
}

// buildPreview converts the raw template to PDF and records it. Failures are
// logged and leave the template without a preview.
func (s *Service) buildPreview(ctx context.Context, t Template, data []byte) string {
	if s.Previewer == nil {
		return ""
	}
	fail := func(err error) string {
		telemetry.Warn("template.preview_failed", map[string]any{"template_id": t.ID, "error": err})
		return ""
	}

	dir := filepath.Join(s.WorkDir, "preview-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "preview_"+t.ID+".docx")
	if err := os.WriteFile(input, data, 0o644); err != nil {
		return fail(err)
	}
	pdfPath, err := convert.ConvertAndClean(ctx, s.Previewer, input, dir)
	if err != nil {
		return fail(err)
	}
	f, err := os.Open(pdfPath)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	key, _, _, err := s.Store.Save(ctx, previewNamespace, filepath.Base(pdfPath), f)
	if err != nil {
		return fail(err)
	}
	if err := s.Repo.SetPreview(ctx, t.ID, key); err != nil {
		_ = s.Store.Delete(ctx, key)
		return fail(err)
	}
	return key
}
