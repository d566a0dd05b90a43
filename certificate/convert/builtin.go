package convert

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"verifycert-backend/internal/extract"
)

// Builtin lays out the paragraphs of a DOCX as centered text on A4 pages.
// Formatting is not preserved; it exists for environments without LibreOffice.
type Builtin struct{}

func NewBuiltin() *Builtin { return &Builtin{} }

func (b *Builtin) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("%w: read input: %v", ErrConversionFailed, err)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, extract.MimeDOCX, inputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 30, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	first := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			pdf.Ln(6)
			continue
		}
		if first {
			pdf.SetFont("Helvetica", "B", 24)
			pdf.MultiCell(0, 14, tr(line), "", "C", false)
			pdf.Ln(4)
			first = false
			continue
		}
		pdf.SetFont("Helvetica", "", 14)
		pdf.MultiCell(0, 9, tr(line), "", "C", false)
	}

	pdfPath := OutputPath(inputPath, outDir)
	if err := pdf.OutputFileAndClose(pdfPath); err != nil {
		_ = os.Remove(pdfPath)
		return "", fmt.Errorf("%w: write pdf: %v", ErrConversionFailed, err)
	}
	if err := CheckPDF(pdfPath); err != nil {
		_ = os.Remove(pdfPath)
		return "", err
	}
	return pdfPath, nil
}
