// Package render fills {{TOKEN}} placeholders in DOCX templates.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"verifycert-backend/internal/extract"
)

// ErrTemplateFormat is returned when the template package or its markup cannot
// be processed. Its message is shown to the caller as is.
var ErrTemplateFormat = errors.New("template formatting error")

var tokenPattern = regexp.MustCompile(`{{([^{}]*)}}`)

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTemplateFormat, fmt.Sprintf(format, args...))
}

// Render fills every {{TOKEN}} in the body, headers and footers of a DOCX.
// QR_CODE always renders as an empty string. Tokens without a value are left in place.
func Render(template []byte, data map[string]string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, formatError("not a DOCX package: %v", err)
	}

	values := make(map[string]string, len(data)+1)
	for k, v := range data {
		values[strings.TrimSpace(k)] = v
	}
	values[extract.TokenQRCode] = ""

	hasDocument := false
	for _, file := range reader.File {
		if normalizeZipName(file.Name) == "word/document.xml" {
			hasDocument = true
			break
		}
	}
	if !hasDocument {
		return nil, formatError("word/document.xml not found")
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)

	for _, file := range reader.File {
		name := normalizeZipName(file.Name)
		content, err := readZipFile(file)
		if err != nil {
			return nil, formatError("read %s: %v", name, err)
		}
		if isRenderablePart(name) {
			rendered, err := renderPartXML(string(content), values)
			if err != nil {
				return nil, formatError("%s: %v", name, err)
			}
			content = []byte(rendered)
		}
		if err := writeZipFile(writer, file, content); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// RenderFile renders the template at templatePath and writes the result to outPath.
func RenderFile(templatePath, outPath string, data map[string]string) error {
	template, err := os.ReadFile(filepath.Clean(templatePath))
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	rendered, err := Render(template, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
		return fmt.Errorf("write rendered document: %w", err)
	}
	return nil
}

func isRenderablePart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	if strings.Contains(base, "/") {
		return false
	}
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

func renderPartXML(xmlText string, values map[string]string) (string, error) {
	rootStart, rootEnd, err := extractRootTags(xmlText)
	if err != nil {
		return "", err
	}
	root, header, err := parseXMLDocument(xmlText)
	if err != nil {
		return "", err
	}

	replaceTokens(root, values)

	out, err := encodeXMLDocument(header, root, rootStart, rootEnd)
	if err != nil {
		return "", err
	}
	if err := checkWellFormed(out); err != nil {
		return "", err
	}
	return out, nil
}

// replaceTokens substitutes tokens paragraph by paragraph. A paragraph's runs
// are read as one string so tokens split by Word across runs still match. Each
// value lands in the w:t where its token starts and the rest of the token is
// cut from the following w:t elements, so every run keeps its own formatting.
func replaceTokens(node *xmlNode, values map[string]string) {
	if node == nil || node.IsText {
		return
	}
	if isElement(node, "p") {
		replaceTokensInParagraph(node, values)
	}
	for _, child := range node.Children {
		replaceTokens(child, values)
	}
}

// tokenSpan is a replaced token at [start, end) of a paragraph's text.
type tokenSpan struct {
	start, end int
	value      string
}

func replaceTokensInParagraph(p *xmlNode, values map[string]string) {
	textNodes := paragraphTextNodes(p)
	if len(textNodes) == 0 {
		return
	}
	texts := make([]string, len(textNodes))
	var combined strings.Builder
	for i, node := range textNodes {
		texts[i] = nodeText(node)
		combined.WriteString(texts[i])
	}
	original := combined.String()
	if !strings.Contains(original, "{{") {
		return
	}
	spans := tokenSpans(original, values)
	if len(spans) == 0 {
		return
	}

	offset := 0
	for i, node := range textNodes {
		from, to := offset, offset+len(texts[i])
		offset = to
		updated := spliceRun(original, from, to, spans)
		if updated != texts[i] {
			setNodeText(node, updated)
		}
	}
}

func tokenSpans(text string, values map[string]string) []tokenSpan {
	var spans []tokenSpan
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSpace(text[m[2]:m[3]])
		if !extract.ValidTokenName(name) {
			continue
		}
		if value, ok := values[name]; ok {
			spans = append(spans, tokenSpan{start: m[0], end: m[1], value: value})
		}
	}
	return spans
}

// spliceRun returns the new text of the run covering [from, to) of text.
func spliceRun(text string, from, to int, spans []tokenSpan) string {
	var b strings.Builder
	pos := from
	for _, span := range spans {
		if span.end <= from || span.start >= to {
			continue
		}
		if span.start > pos {
			b.WriteString(text[pos:span.start])
		}
		if span.start >= from {
			b.WriteString(span.value)
		}
		pos = max(pos, min(span.end, to))
	}
	if pos < to {
		b.WriteString(text[pos:to])
	}
	return b.String()
}

func checkWellFormed(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("re-encoded markup is invalid: %w", err)
		}
	}
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeZipFile(writer *zip.Writer, source *zip.File, content []byte) error {
	header := source.FileHeader
	header.Name = normalizeZipName(source.Name)

	dst, err := writer.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}
