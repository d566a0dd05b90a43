package main

// Render one certificate locally without the API:
//   go run ./cmd/renderdemo -template ./course.docx -set NAME="Ada Lovelace" -out ./out

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"verifycert-backend/certificate/convert"
	"verifycert-backend/certificate/pipeline"
	"verifycert-backend/certificate/stamp"
	"verifycert-backend/internal/extract"
)

type valueFlags map[string]string

func (v valueFlags) String() string {
	return fmt.Sprint(map[string]string(v))
}

func (v valueFlags) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected KEY=value, got %q", raw)
	}
	v[key] = value
	return nil
}

func main() {
	values := valueFlags{}
	templatePath := flag.String("template", "", "path to a DOCX certificate template")
	outDir := flag.String("out", "./out", "directory for the generated certificate")
	converter := flag.String("converter", "builtin", "converter to use: builtin or soffice")
	sofficePath := flag.String("soffice", "", "explicit soffice binary")
	baseURL := flag.String("base-url", "http://localhost:5173", "public base URL encoded in the QR code")
	flag.Var(values, "set", "placeholder value as KEY=value (repeatable)")
	flag.Parse()

	if *templatePath == "" {
		fmt.Fprintln(os.Stderr, "-template is required")
		os.Exit(2)
	}

	pdfPath, id, err := run(context.Background(), *templatePath, *outDir, *converter, *sofficePath, *baseURL, values)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	if err := validateRenderedPDF(pdfPath); err != nil {
		fmt.Fprintf(os.Stderr, "render validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %s\nverify: %s\n", pdfPath, stamp.VerifyURL(*baseURL, id))
}

func run(ctx context.Context, templatePath, outDir, converter, sofficePath, baseURL string, values map[string]string) (string, string, error) {
	data, err := os.ReadFile(filepath.Clean(templatePath))
	if err != nil {
		return "", "", err
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, "", filepath.Base(templatePath))
	if err != nil {
		return "", "", err
	}
	scan, err := extract.RequirePlaceholders(text)
	if err != nil {
		return "", "", err
	}
	if missing := extract.MissingValues(scan.Placeholders, values); len(missing) > 0 {
		return "", "", errors.New(extract.MissingValuesMessage(missing))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", err
	}

	var conv convert.Converter = convert.NewBuiltin()
	if converter == "soffice" {
		conv = convert.NewSoffice(sofficePath)
	}
	p := pipeline.New(conv, stamp.New(0, stamp.Position{X: 40, Y: 40}), baseURL)

	id := uuid.NewString()
	pdfPath, err := p.Generate(ctx, pipeline.GenerateInput{
		TemplatePath: templatePath,
		WorkDir:      outDir,
		Data:         values,
		ID:           id,
	})
	if err != nil {
		return "", "", err
	}

	payload, err := json.MarshalIndent(map[string]any{"id": id, "data": values}, "", "  ")
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filepath.Join(outDir, pipeline.OutputName(id)+".json"), payload, 0o644); err != nil {
		return "", "", err
	}
	return pdfPath, id, nil
}

func validateRenderedPDF(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := extract.ExtractTextFromBytes(context.Background(), data, "application/pdf", filepath.Base(path))
	if err != nil {
		return err
	}
	if i := strings.Index(text, "{{"); i != -1 {
		end := min(len(text), i+40)
		return errors.New("unrendered token near: " + text[i:end])
	}
	return nil
}
