// Package convert turns rendered DOCX files into PDFs.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrConverterNotFound = errors.New("document converter not found")
	ErrConversionFailed  = errors.New("document conversion failed")
	ErrOutputMissing     = errors.New("converter reported success but produced no readable PDF")
)

// Converter produces a PDF in outDir from the document at inputPath and
// returns the PDF path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outDir string) (string, error)
}

// ToolError carries the combined output of a converter process that exited
// with an error.
type ToolError struct {
	Tool   string
	Err    error
	Output string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConversionFailed.Error(), e.Tool, e.Err)
}

func (e *ToolError) Unwrap() []error {
	return []error{ErrConversionFailed, e.Err}
}

// ConvertAndClean converts inputPath and removes it afterwards, whatever the outcome.
func ConvertAndClean(ctx context.Context, c Converter, inputPath, outDir string) (string, error) {
	defer os.Remove(inputPath)
	return c.Convert(ctx, inputPath, outDir)
}

// OutputPath is where a converter writes the PDF for inputPath.
func OutputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
}

// CheckPDF fails with ErrOutputMissing unless path is a PDF with at least one page.
func CheckPDF(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOutputMissing, filepath.Base(path))
		}
		return fmt.Errorf("%w: %v", ErrOutputMissing, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrOutputMissing, filepath.Base(path))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s unreadable: %v", ErrOutputMissing, filepath.Base(path), err)
	}
	defer f.Close()
	if r.NumPage() == 0 {
		return fmt.Errorf("%w: %s has no pages", ErrOutputMissing, filepath.Base(path))
	}
	return nil
}
