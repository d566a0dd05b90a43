package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"verifycert-backend/internal/shared/telemetry"
)

// KnownSofficePaths are checked, in order, before falling back to PATH.
var KnownSofficePaths = []string{
	"/usr/bin/soffice",
	"/usr/lib/libreoffice/program/soffice",
	"/opt/libreoffice/program/soffice",
	"/Applications/LibreOffice.app/Contents/MacOS/soffice",
	`C:\Program Files\LibreOffice\program\soffice.exe`,
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Soffice converts documents with a headless LibreOffice process. Each call
// blocks until the process exits; no timeout is applied here.
type Soffice struct {
	Explicit string

	candidates []string
	lookPath   func(string) (string, error)
	run        runFunc
}

// NewSoffice returns a converter. A non-empty explicit path wins over discovery.
func NewSoffice(explicit string) *Soffice {
	return &Soffice{
		Explicit:   strings.TrimSpace(explicit),
		candidates: KnownSofficePaths,
		lookPath:   exec.LookPath,
		run:        runCommand,
	}
}

// Resolve returns the binary that Convert will run.
func (s *Soffice) Resolve() (string, error) {
	if s.Explicit != "" {
		if isExecutable(s.Explicit) {
			return s.Explicit, nil
		}
		return "", fmt.Errorf("%w: %s", ErrConverterNotFound, s.Explicit)
	}
	for _, candidate := range s.candidates {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if path, err := s.lookPath("soffice"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: install LibreOffice or set SOFFICE_PATH", ErrConverterNotFound)
}

// Convert runs soffice --headless --convert-to pdf and verifies the result.
func (s *Soffice) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	bin, err := s.Resolve()
	if err != nil {
		return "", err
	}

	// A private profile per call keeps concurrent requests from fighting over
	// the LibreOffice user installation lock.
	profileDir, err := os.MkdirTemp(outDir, ".lo-profile-")
	if err != nil {
		return "", fmt.Errorf("create converter profile: %w", err)
	}
	defer os.RemoveAll(profileDir)

	args := []string{
		"-env:UserInstallation=" + fileURL(profileDir),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	}
	output, err := s.run(ctx, bin, args...)
	if err != nil {
		telemetry.Error("convert.soffice_failed", map[string]any{
			"input":  filepath.Base(inputPath),
			"error":  err,
			"output": string(output),
		})
		return "", &ToolError{Tool: filepath.Base(bin), Err: err, Output: strings.TrimSpace(string(output))}
	}

	pdfPath := OutputPath(inputPath, outDir)
	if err := CheckPDF(pdfPath); err != nil {
		_ = os.Remove(pdfPath)
		return "", err
	}
	return pdfPath, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.Bytes(), err
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if filepath.Ext(path) == ".exe" {
		return true
	}
	return info.Mode()&0o111 != 0
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}

// IsToolError reports whether err came from a failed converter process and
// returns its output.
func IsToolError(err error) (string, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Output, true
	}
	return "", false
}
