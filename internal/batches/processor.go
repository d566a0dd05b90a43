package batches

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"verifycert-backend/certificate/pipeline"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/documents"
	"verifycert-backend/internal/shared/metrics"
	"verifycert-backend/internal/shared/telemetry"
)

// RowRunner generates the certificate for one row.
type RowRunner interface {
	RunRow(ctx context.Context, row int, in pipeline.GenerateInput) pipeline.Result
}

// Recorder stores a finished PDF and its document record.
type Recorder interface {
	Record(ctx context.Context, doc documents.Document, pdfPath string) (documents.Document, error)
}

type Request struct {
	TemplateID string
	Rows       []Row
	QR         *stamp.Position
}

// RowError describes a row that produced no certificate.
type RowError struct {
	Row   int               `json:"row"`
	Error string            `json:"error"`
	Data  map[string]string `json:"data"`
}

// Summary reports a finished batch. ArchiveURL is empty and ArchiveError is
// set when the documents were issued but could not be zipped.
type Summary struct {
	BatchID      string     `json:"batchId"`
	Total        int        `json:"total"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Errors       []RowError `json:"errors"`
	DocumentIDs  []string   `json:"documentIds"`
	ArchiveURL   string     `json:"downloadUrl"`
	ArchiveError string     `json:"archiveError,omitempty"`
}

// Processor runs bulk generation. Rows are handled one at a time, in file order.
type Processor struct {
	Templates documents.TemplateSource
	Runner    RowRunner
	Documents Recorder
	WorkDir   string
}

// Run generates a certificate per row, collecting failures per row. It fails
// with *BatchFailedError only when no row succeeded.
func (p *Processor) Run(ctx context.Context, req Request) (Summary, error) {
	tpl, err := p.Templates.Usable(ctx, req.TemplateID)
	if err != nil {
		return Summary{}, err
	}
	if len(req.Rows) == 0 {
		return Summary{}, fmt.Errorf("%w: no rows to process", ErrInvalidInput)
	}

	batchID := uuid.NewString()
	workDir := filepath.Join(p.WorkDir, "batch-"+batchID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	// A started batch runs to completion even if the client disconnects.
	runCtx := context.WithoutCancel(ctx)

	templatePath := filepath.Join(workDir, "template.docx")
	if err := p.Templates.CopyTo(runCtx, tpl, templatePath); err != nil {
		return Summary{}, err
	}

	telemetry.Info("batch.started", map[string]any{
		"batch_id":    batchID,
		"template_id": tpl.ID,
		"rows":        len(req.Rows),
	})

	rowErrors := []RowError{}
	var outputs, docIDs []string
	for _, row := range req.Rows {
		data, err := documents.ResolveData(tpl.Placeholders, row.Data)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: row.Number, Error: err.Error(), Data: row.Data})
			continue
		}

		id := uuid.NewString()
		outputName := pipeline.OutputName(id)
		res := p.Runner.RunRow(runCtx, row.Number, pipeline.GenerateInput{
			TemplatePath: templatePath,
			WorkDir:      workDir,
			OutputName:   outputName,
			Data:         data,
			ID:           id,
			QR:           req.QR,
		})
		if res.Err != nil {
			rowErrors = append(rowErrors, RowError{Row: row.Number, Error: res.Err.Error(), Data: row.Data})
			continue
		}

		_, err = p.Documents.Record(runCtx, documents.Document{
			ID:         id,
			TemplateID: tpl.ID,
			Data:       documents.WithSystemFields(data, id),
			FileName:   outputName + ".pdf",
			BatchID:    batchID,
		}, res.Path)
		if err != nil {
			_ = os.Remove(res.Path)
			rowErrors = append(rowErrors, RowError{Row: row.Number, Error: err.Error(), Data: row.Data})
			continue
		}
		outputs = append(outputs, res.Path)
		docIDs = append(docIDs, id)
	}

	metrics.AddBatchRows(len(req.Rows), len(rowErrors))
	fields := map[string]any{
		"batch_id":    batchID,
		"template_id": tpl.ID,
		"total":       len(req.Rows),
		"succeeded":   len(outputs),
		"failed":      len(rowErrors),
	}

	if len(outputs) == 0 {
		telemetry.Warn("batch.failed", fields)
		return Summary{}, &BatchFailedError{BatchID: batchID, Errors: rowErrors}
	}

	summary := Summary{
		BatchID:     batchID,
		Total:       len(req.Rows),
		Succeeded:   len(outputs),
		Failed:      len(rowErrors),
		Errors:      rowErrors,
		DocumentIDs: docIDs,
	}
	if err := writeArchive(ArchiveFile(p.WorkDir, batchID), outputs); err != nil {
		telemetry.Error("batch.archive_failed", map[string]any{
			"batch_id":     batchID,
			"template_id":  tpl.ID,
			"document_ids": docIDs,
			"error":        err,
		})
		summary.ArchiveError = "archive could not be written; documents remain available individually"
		return summary, nil
	}
	telemetry.Info("batch.completed", fields)

	summary.ArchiveURL = ArchiveURL(batchID)
	return summary, nil
}

// ArchivePath returns the archive of a finished batch.
func (p *Processor) ArchivePath(batchID string) (string, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return "", ErrArchiveNotFound
	}
	path := ArchiveFile(p.WorkDir, batchID)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrArchiveNotFound
	}
	return path, nil
}
