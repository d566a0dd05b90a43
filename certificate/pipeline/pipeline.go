// Package pipeline turns a template and one set of values into a stamped
// certificate PDF: render, convert, then stamp.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/certificate/render"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/metrics"
	"verifycert-backend/internal/shared/telemetry"
)

var ErrInvalidInput = errors.New("invalid generation input")

// Stamper places the verification QR code on a finished PDF.
type Stamper interface {
	Stamp(ctx context.Context, pdfPath, verifyURL string, pos *stamp.Position) error
}

type Pipeline struct {
	Converter convert.Converter
	Stamper   Stamper
	BaseURL   string
}

func New(conv convert.Converter, st Stamper, baseURL string) *Pipeline {
	return &Pipeline{Converter: conv, Stamper: st, BaseURL: baseURL}
}

type GenerateInput struct {
	TemplatePath string
	WorkDir      string
	// OutputName is the file stem for the rendered DOCX and resulting PDF.
	OutputName string
	Data       map[string]string
	ID         string
	QR         *stamp.Position
}

// OutputName is the file stem used for a certificate's artifacts.
func OutputName(id string) string {
	return "certificate_" + id
}

// Generate produces <WorkDir>/<OutputName>.pdf. The certificate identifier is
// always available to the template as CERTIFICATE_ID, and QR_CODE renders empty.
func (p *Pipeline) Generate(ctx context.Context, in GenerateInput) (string, error) {
	if in.TemplatePath == "" || in.WorkDir == "" || in.ID == "" {
		return "", fmt.Errorf("%w: template, work dir and id are required", ErrInvalidInput)
	}
	if in.OutputName == "" {
		in.OutputName = OutputName(in.ID)
	}
	start := time.Now()

	values := make(map[string]string, len(in.Data)+2)
	maps.Copy(values, in.Data)
	values[extract.TokenCertificateID] = in.ID
	values[extract.TokenQRCode] = ""

	docxPath := filepath.Join(in.WorkDir, in.OutputName+".docx")
	if err := render.RenderFile(in.TemplatePath, docxPath, values); err != nil {
		_ = os.Remove(docxPath)
		return "", err
	}

	pdfPath, err := convert.ConvertAndClean(ctx, p.Converter, docxPath, in.WorkDir)
	if err != nil {
		return "", err
	}

	if err := p.Stamper.Stamp(ctx, pdfPath, stamp.VerifyURL(p.BaseURL, in.ID), in.QR); err != nil {
		_ = os.Remove(pdfPath)
		return "", err
	}

	elapsed := time.Since(start)
	metrics.ObserveGenerationDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Debug("pipeline.generated", map[string]any{
		"certificate_id": in.ID,
		"output":         filepath.Base(pdfPath),
		"duration_ms":    elapsed.Milliseconds(),
	})
	return pdfPath, nil
}

// Result is the outcome of one bulk row. Row is 1-based over data rows.
type Result struct {
	Row  int
	ID   string
	Data map[string]string
	Path string
	Err  error
}

// RunRow generates one row and records failures in the result instead of returning them.
func (p *Pipeline) RunRow(ctx context.Context, row int, in GenerateInput) Result {
	res := Result{Row: row, ID: in.ID, Data: in.Data}
	path, err := p.Generate(ctx, in)
	if err != nil {
		metrics.IncGenerationFailed()
		res.Err = err
		return res
	}
	res.Path = path
	return res
}
