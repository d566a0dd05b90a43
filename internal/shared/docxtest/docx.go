// Package docxtest builds minimal DOCX packages in memory for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"html"
	"sort"
	"strings"
	"testing"
)

const WordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

// Paragraph renders one w:p with a single run holding text.
func Paragraph(text string) string {
	return Runs(text)
}

// Runs renders one w:p whose text is split across the given runs.
func Runs(parts ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, p := range parts {
		b.WriteString(`<w:r><w:t xml:space="preserve">`)
		b.WriteString(html.EscapeString(p))
		b.WriteString("</w:t></w:r>")
	}
	b.WriteString("</w:p>")
	return b.String()
}

// Document wraps paragraphs into a word/document.xml body.
func Document(paragraphs ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + WordNamespace + `"><w:body>` +
		strings.Join(paragraphs, "") +
		`</w:body></w:document>`
}

// Part wraps paragraphs into a header or footer part with the given root (w:hdr or w:ftr).
func Part(root string, paragraphs ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<` + root + ` xmlns:w="` + WordNamespace + `">` +
		strings.Join(paragraphs, "") +
		`</` + root + `>`
}

// Build zips the given parts together with the package boilerplate.
func Build(t testing.TB, parts map[string]string) []byte {
	t.Helper()
	all := map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         rootRels,
	}
	for name, body := range parts {
		all[name] = body
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(all[name])); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Simple builds a DOCX whose body holds one paragraph per line.
func Simple(t testing.TB, lines ...string) []byte {
	t.Helper()
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		paragraphs = append(paragraphs, Paragraph(line))
	}
	return Build(t, map[string]string{"word/document.xml": Document(paragraphs...)})
}

// ReadPart returns the named part of a DOCX package.
func ReadPart(t testing.TB, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		var out bytes.Buffer
		if _, err := out.ReadFrom(rc); err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return out.String()
	}
	t.Fatalf("part %s not found", name)
	return ""
}
