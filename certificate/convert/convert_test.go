package convert

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/docxtest"
)

func writePDF(t *testing.T, path string) {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(40, 10, "converted")
	require.NoError(t, doc.OutputFileAndClose(path))
}

func fakeExecutable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soffice")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestSofficeResolveOrder(t *testing.T) {
	bin := fakeExecutable(t)

	s := NewSoffice("")
	s.candidates = []string{filepath.Join(t.TempDir(), "missing"), bin}
	s.lookPath = func(string) (string, error) { return "/from/path", nil }
	got, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	s.candidates = nil
	got, err = s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "/from/path", got)

	s.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	_, err = s.Resolve()
	assert.ErrorIs(t, err, ErrConverterNotFound)
}

func TestSofficeExplicitPath(t *testing.T) {
	bin := fakeExecutable(t)
	s := NewSoffice(bin)
	s.candidates = nil
	got, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	s = NewSoffice(filepath.Join(t.TempDir(), "nope"))
	_, err = s.Resolve()
	assert.ErrorIs(t, err, ErrConverterNotFound)
}

func TestSofficeConvertSuccess(t *testing.T) {
	outDir := t.TempDir()
	input := filepath.Join(outDir, "certificate_abc.docx")
	require.NoError(t, os.WriteFile(input, []byte("docx"), 0o644))

	var gotArgs []string
	s := NewSoffice(fakeExecutable(t))
	s.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		writePDF(t, filepath.Join(outDir, "certificate_abc.pdf"))
		return []byte("convert ok"), nil
	}

	got, err := s.Convert(t.Context(), input, outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "certificate_abc.pdf"), got)
	assert.Contains(t, gotArgs, "--headless")
	assert.Contains(t, gotArgs, input)
	assert.True(t, strings.HasPrefix(gotArgs[0], "-env:UserInstallation=file:///"))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".lo-profile-"), "profile dir left behind")
	}
}

func TestSofficeConvertToolError(t *testing.T) {
	outDir := t.TempDir()
	s := NewSoffice(fakeExecutable(t))
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Error: source file could not be loaded\n"), errors.New("exit status 1")
	}

	_, err := s.Convert(t.Context(), filepath.Join(outDir, "in.docx"), outDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	output, ok := IsToolError(err)
	require.True(t, ok)
	assert.Equal(t, "Error: source file could not be loaded", output)
}

func TestSofficeConvertMissingOutput(t *testing.T) {
	outDir := t.TempDir()
	s := NewSoffice(fakeExecutable(t))
	s.run = func(context.Context, string, ...string) ([]byte, error) { return nil, nil }

	_, err := s.Convert(t.Context(), filepath.Join(outDir, "in.docx"), outDir)
	assert.ErrorIs(t, err, ErrOutputMissing)
}

func TestSofficeConvertUnreadableOutput(t *testing.T) {
	outDir := t.TempDir()
	s := NewSoffice(fakeExecutable(t))
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(outDir, "in.pdf"), []byte("not a pdf at all"), 0o644)
	}

	_, err := s.Convert(t.Context(), filepath.Join(outDir, "in.docx"), outDir)
	assert.ErrorIs(t, err, ErrOutputMissing)
	assert.NoFileExists(t, filepath.Join(outDir, "in.pdf"))
}

func TestSofficeRunsRealProcess(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "soffice")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755))

	s := NewSoffice(script)
	_, err := s.Convert(t.Context(), filepath.Join(dir, "in.docx"), dir)
	require.Error(t, err)
	output, ok := IsToolError(err)
	require.True(t, ok)
	assert.Equal(t, "boom", output)
}

func TestBuiltinConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "certificate_1.docx")
	require.NoError(t, os.WriteFile(input, docxtest.Simple(t, "Certificate of Completion", "Ada Lovelace"), 0o644))

	got, err := NewBuiltin().Convert(t.Context(), input, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "certificate_1.pdf"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	text, err := extract.ExtractTextFromBytes(t.Context(), data, extract.MimePDF, "certificate_1.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Lovelace")
}

func TestBuiltinRejectsNonDocx(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(input, []byte("nope"), 0o644))

	_, err := NewBuiltin().Convert(t.Context(), input, dir)
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestConvertAndCleanRemovesInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "x.docx")
	require.NoError(t, os.WriteFile(input, docxtest.Simple(t, "hello"), 0o644))

	_, err := ConvertAndClean(t.Context(), NewBuiltin(), input, dir)
	require.NoError(t, err)
	assert.NoFileExists(t, input)

	require.NoError(t, os.WriteFile(input, []byte("bad"), 0o644))
	_, err = ConvertAndClean(t.Context(), NewBuiltin(), input, dir)
	require.Error(t, err)
	assert.NoFileExists(t, input)
}
