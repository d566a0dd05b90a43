package util

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSafeSegment(t *testing.T) {
	cases := map[string]string{
		"templates":    "templates",
		" Documents ":  "documents",
		"../etc":       "etc",
		"a/b c":        "a_b_c",
		"":             "default",
		"///":          "default",
		"batch-2024_1": "batch-2024_1",
	}
	for in, want := range cases {
		if got := SafeSegment(in); got != want {
			t.Fatalf("SafeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName(" a/b\\c.docx ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a_b_c.docx" {
		t.Fatalf("unexpected name %q", got)
	}
	if _, err := SanitizeFileName("../x.docx"); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatalf("expected empty rejection")
	}
}

func TestSanitizeFileNameDropsControlCharacters(t *testing.T) {
	got, err := SanitizeFileName("cert\x00ificate\t.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "certificate.docx" {
		t.Fatalf("unexpected name %q", got)
	}
	if _, err := SanitizeFileName("///"); !errors.Is(err, ErrInvalidFileName) {
		t.Fatalf("expected ErrInvalidFileName for separators only, got %v", err)
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 400) + ".docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := utf8.RuneCountInString(got); n != MaxFileNameLength {
		t.Fatalf("expected %d runes, got %d", MaxFileNameLength, n)
	}
	if !strings.HasSuffix(got, ".docx") {
		t.Fatalf("extension lost: %q", got[len(got)-10:])
	}
}
