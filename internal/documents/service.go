package documents

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"verifycert-backend/certificate/pipeline"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/metrics"
	"verifycert-backend/internal/shared/storage/object"
	"verifycert-backend/internal/shared/telemetry"
	"verifycert-backend/internal/templates"
)

const documentNamespace = "documents"

// TemplateSource resolves templates for generation.
type TemplateSource interface {
	Usable(ctx context.Context, id string) (templates.Template, error)
	CopyTo(ctx context.Context, t templates.Template, path string) error
}

// Generator runs the render, convert and stamp steps.
type Generator interface {
	Generate(ctx context.Context, in pipeline.GenerateInput) (string, error)
}

// Service contains business logic for generated documents.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Templates TemplateSource
	Pipeline  Generator
	WorkDir   string
}

type GenerateRequest struct {
	TemplateID string
	Values     map[string]string
	QR         *stamp.Position
}

// ResolveData returns every submitted field keyed by its trimmed name and
// fails with *MissingValuesError when a declared placeholder is blank.
func ResolveData(placeholders []string, values map[string]string) (map[string]string, error) {
	data := make(map[string]string, len(values)+len(extract.ReservedTokens))
	for k, v := range values {
		if name := strings.TrimSpace(k); name != "" {
			data[name] = v
		}
	}
	if missing := extract.MissingValues(placeholders, data); len(missing) > 0 {
		return nil, &MissingValuesError{Fields: missing}
	}
	return data, nil
}

// WithSystemFields returns data plus CERTIFICATE_ID and an empty QR_CODE.
func WithSystemFields(data map[string]string, id string) map[string]string {
	out := maps.Clone(data)
	if out == nil {
		out = map[string]string{}
	}
	out[extract.TokenCertificateID] = id
	out[extract.TokenQRCode] = ""
	return out
}

// Generate issues one certificate from a template and a set of values.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Document, error) {
	tpl, err := s.Templates.Usable(ctx, req.TemplateID)
	if err != nil {
		return Document{}, err
	}
	data, err := ResolveData(tpl.Placeholders, req.Values)
	if err != nil {
		return Document{}, err
	}

	id := uuid.NewString()
	workDir := filepath.Join(s.WorkDir, "gen-"+id)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Document{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Generation runs to completion even if the client goes away.
	runCtx := context.WithoutCancel(ctx)

	templatePath := filepath.Join(workDir, "template.docx")
	if err := s.Templates.CopyTo(runCtx, tpl, templatePath); err != nil {
		return Document{}, err
	}

	outputName := pipeline.OutputName(id)
	pdfPath, err := s.Pipeline.Generate(runCtx, pipeline.GenerateInput{
		TemplatePath: templatePath,
		WorkDir:      workDir,
		OutputName:   outputName,
		Data:         data,
		ID:           id,
		QR:           req.QR,
	})
	if err != nil {
		metrics.IncGenerationFailed()
		telemetry.Warn("document.generate_failed", map[string]any{
			"template_id":    tpl.ID,
			"certificate_id": id,
			"error":          err,
		})
		return Document{}, err
	}

	doc, err := s.Record(runCtx, Document{
		ID:         id,
		TemplateID: tpl.ID,
		Data:       WithSystemFields(data, id),
		FileName:   outputName + ".pdf",
	}, pdfPath)
	if err != nil {
		return Document{}, err
	}
	telemetry.Info("document.generated", map[string]any{
		"template_id": tpl.ID,
		"document_id": doc.ID,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, nil
}

// Record uploads the finished PDF and persists the document. The stored
// object is removed again if the record cannot be written.
func (s *Service) Record(ctx context.Context, doc Document, pdfPath string) (Document, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	storageKey, size, _, err := s.Store.Save(ctx, documentNamespace, doc.FileName, f)
	if err != nil {
		return Document{}, err
	}
	doc.StorageKey = storageKey
	doc.SizeBytes = size
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		_ = s.Store.Delete(ctx, storageKey)
		return Document{}, err
	}
	metrics.IncDocumentsGenerated()
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// List returns one page of documents newest first and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, int, error) {
	docs, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Open returns the stored PDF of a document.
func (s *Service) Open(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, rc, nil
}
