package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnsupportedType is returned for payloads that are neither DOCX nor PDF.
var ErrUnsupportedType = errors.New("unsupported file type")

// ExtractTextFromBytes extracts plain text from a DOCX or PDF payload.
// For DOCX the body comes first, then headers and footers in part-name order.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := DetectMimeType(mimeType, fileName, data)
	switch normalized {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
}

// DetectMimeType resolves generic zip/octet-stream types to the OOXML type
// the package actually contains, falling back to the file extension.
func DetectMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case "application/zip", "application/octet-stream", "application/x-zip-compressed", "":
	default:
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return MimePDF
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	default:
		if clean == "" {
			return "application/octet-stream"
		}
		return clean
	}
}

func extractPDF(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var body *zip.File
	var headers, footers []*zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		switch {
		case name == "word/document.xml":
			body = f
		case isPart(name, "word/header"):
			headers = append(headers, f)
		case isPart(name, "word/footer"):
			footers = append(footers, f)
		}
	}
	if body == nil {
		return "", errors.New("document.xml file not found")
	}
	sortByName(headers)
	sortByName(footers)

	var sections []string
	for _, f := range append(append([]*zip.File{body}, headers...), footers...) {
		raw, err := readZipEntry(f)
		if err != nil {
			return "", err
		}
		text, err := stripDocxXML(raw)
		if err != nil {
			return "", fmt.Errorf("malformed %s: %w", f.Name, err)
		}
		if text != "" {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, "\n"), nil
}

func isPart(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".xml") && !strings.Contains(name[len("word/"):], "/")
}

func sortByName(files []*zip.File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// stripDocxXML keeps only w:t text. Runs of one paragraph are concatenated so
// a token split across runs reads as one word. Markup that does not decode
// to the end is an error.
func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.CharData:
			if inText {
				buf.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return MimeDOCX
		case "xl/workbook.xml":
			return MimeXLSX
		}
	}
	return ""
}
