package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLength caps stored upload names in runes.
const MaxFileNameLength = 180

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens an uploaded name into a single safe segment:
// separators become "_", control characters are dropped, and long names are
// cut while keeping the extension. Traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r) || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" || strings.Trim(s, "_.") == "" {
		return "", ErrInvalidFileName
	}
	return truncateKeepExt(s, MaxFileNameLength), nil
}

func truncateKeepExt(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if utf8.RuneCountInString(ext) >= limit {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	return string(stem[:limit-utf8.RuneCountInString(ext)]) + ext
}
