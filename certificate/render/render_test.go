package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verifycert-backend/internal/extract"
	"verifycert-backend/internal/shared/docxtest"
)

func TestRenderReplacesTokensSplitAcrossRuns(t *testing.T) {
	template := docxtest.Build(t, map[string]string{
		"word/document.xml": docxtest.Document(
			docxtest.Runs("This certifies that {{", "NAME", "}} completed"),
			docxtest.Runs("{{ COURSE }} on {{DATE}}"),
		),
	})

	out, err := Render(template, map[string]string{"NAME": "Ada Lovelace", "COURSE": "Go 101", "DATE": "2026-01-02"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := mustText(t, out)
	assertContains(t, text, "This certifies that Ada Lovelace completed")
	assertContains(t, text, "Go 101 on 2026-01-02")
	assertNotContains(t, text, "{{")
}

func TestRenderKeepsRunBoundaries(t *testing.T) {
	template := docxtest.Build(t, map[string]string{
		"word/document.xml": docxtest.Document(
			`<w:p><w:r><w:t xml:space="preserve">Awarded to </w:t></w:r>`+
				`<w:r><w:rPr><w:b/></w:rPr><w:t>{{NAME}}</w:t></w:r>`+
				`<w:r><w:t xml:space="preserve"> for {{COURSE}}</w:t></w:r></w:p>`,
			docxtest.Runs("{{", "NAME", "}} today"),
		),
	})

	out, err := Render(template, map[string]string{"NAME": "Ada Lovelace", "COURSE": "Go 101"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := runTexts(t, out)
	want := []string{"Awarded to ", "Ada Lovelace", " for Go 101", "Ada Lovelace", "", " today"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected runs %q, want %q", got, want)
	}
}

func TestRenderBlanksQRCodeAndFillsIdentifier(t *testing.T) {
	template := docxtest.Simple(t, "ID: {{CERTIFICATE_ID}}", "Scan: {{QR_CODE}}|")

	out, err := Render(template, map[string]string{
		extract.TokenCertificateID: "abc-123",
		extract.TokenQRCode:        "should-not-appear",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := mustText(t, out)
	assertContains(t, text, "ID: abc-123")
	assertContains(t, text, "Scan: |")
	assertNotContains(t, text, "should-not-appear")
}

func TestRenderLeavesUnknownAndInvalidTokens(t *testing.T) {
	template := docxtest.Simple(t, "{{NAME}} {{Name}} {{MISSING}}")

	out, err := Render(template, map[string]string{"NAME": "Grace", "Name": "ignored"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := mustText(t, out)
	if text != "Grace {{Name}} {{MISSING}}" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRenderFillsHeadersAndFooters(t *testing.T) {
	template := docxtest.Build(t, map[string]string{
		"word/document.xml": docxtest.Document(docxtest.Paragraph("{{NAME}}")),
		"word/header1.xml":  docxtest.Part("w:hdr", docxtest.Paragraph("Issued by {{ISSUER}}")),
		"word/footer2.xml":  docxtest.Part("w:ftr", docxtest.Runs("Ref {{CERT", "IFICATE_ID}}")),
	})

	out, err := Render(template, map[string]string{"NAME": "N", "ISSUER": "Acme", extract.TokenCertificateID: "id-9"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertContains(t, docxtest.ReadPart(t, out, "word/header1.xml"), "Issued by Acme")
	assertContains(t, docxtest.ReadPart(t, out, "word/footer2.xml"), "Ref id-9")
}

func TestRenderEscapesValues(t *testing.T) {
	template := docxtest.Simple(t, "{{NAME}}")

	out, err := Render(template, map[string]string{"NAME": `Tom & "Jerry" <co>`})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	xmlText := docxtest.ReadPart(t, out, "word/document.xml")
	assertContains(t, xmlText, "Tom &amp; &#34;Jerry&#34; &lt;co&gt;")
	if text := mustText(t, out); text != `Tom & "Jerry" <co>` {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRenderPreservesLeadingSpace(t *testing.T) {
	template := docxtest.Build(t, map[string]string{
		"word/document.xml": docxtest.Document(`<w:p><w:r><w:t>{{A}}</w:t></w:r><w:r><w:t>x</w:t></w:r></w:p>`),
	})

	out, err := Render(template, map[string]string{"A": " padded"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertContains(t, docxtest.ReadPart(t, out, "word/document.xml"), `xml:space="preserve"`)
}

func TestRenderKeepsRootNamespaces(t *testing.T) {
	template := docxtest.Simple(t, "{{NAME}}")

	out, err := Render(template, map[string]string{"NAME": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	xmlText := docxtest.ReadPart(t, out, "word/document.xml")
	assertContains(t, xmlText, `<w:document xmlns:w="`+docxtest.WordNamespace+`">`)
	assertContains(t, xmlText, "<w:body><w:p><w:r><w:t")
	assertContains(t, docxtest.ReadPart(t, out, "[Content_Types].xml"), "word/document.xml")
}

func TestRenderTemplateFormatErrors(t *testing.T) {
	cases := map[string][]byte{
		"not a zip":        []byte("plain text"),
		"missing document": docxtest.Build(t, map[string]string{"word/header1.xml": docxtest.Part("w:hdr")}),
		"malformed markup": docxtest.Build(t, map[string]string{"word/document.xml": `<w:document xmlns:w="x"><w:body><w:p></w:body>`}),
		"no root element":  docxtest.Build(t, map[string]string{"word/document.xml": `<?xml version="1.0"?>`}),
		"broken header":    docxtest.Build(t, map[string]string{"word/document.xml": docxtest.Document(), "word/header1.xml": `<w:hdr xmlns:w="x"><w:p>`}),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Render(data, map[string]string{"NAME": "x"})
			if !errors.Is(err, ErrTemplateFormat) {
				t.Fatalf("expected ErrTemplateFormat, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), "template formatting error:") {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "template.docx")
	outPath := filepath.Join(dir, "out.docx")
	if err := os.WriteFile(templatePath, docxtest.Simple(t, "Hello {{NAME}}"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	if err := RenderFile(templatePath, outPath, map[string]string{"NAME": "World"}); err != nil {
		t.Fatalf("render file: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if text := mustText(t, data); text != "Hello World" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRenderFileMissingTemplate(t *testing.T) {
	err := RenderFile(filepath.Join(t.TempDir(), "nope.docx"), filepath.Join(t.TempDir(), "out.docx"), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

// runTexts lists the text of every w:t in word/document.xml in order.
func runTexts(t *testing.T, docx []byte) []string {
	t.Helper()
	root, _, err := parseXMLDocument(docxtest.ReadPart(t, docx, "word/document.xml"))
	if err != nil {
		t.Fatalf("parse rendered part: %v", err)
	}
	var out []string
	var visit func(n *xmlNode)
	visit = func(n *xmlNode) {
		if isElement(n, "t") {
			out = append(out, nodeText(n))
			return
		}
		for _, child := range n.Children {
			visit(child)
		}
	}
	visit(root)
	return out
}

func mustText(t *testing.T, docx []byte) string {
	t.Helper()
	text, err := extract.ExtractTextFromBytes(t.Context(), docx, extract.MimeDOCX, "out.docx")
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	return text
}

func assertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func assertNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Fatalf("expected %q not to contain %q", haystack, needle)
	}
}
