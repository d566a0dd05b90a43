package extract

import (
	"errors"
	"regexp"
	"strings"
)

// Reserved tokens are filled by the system, never by the caller.
const (
	TokenCertificateID = "CERTIFICATE_ID"
	TokenQRCode        = "QR_CODE"
)

// ReservedTokens lists the system fields in a fixed order.
var ReservedTokens = []string{TokenCertificateID, TokenQRCode}

// ErrNoPlaceholders means the template declares no user-facing placeholder.
var ErrNoPlaceholders = errors.New("template has no placeholders; use {{UPPERCASE_NAME}} tokens")

var (
	tokenPattern   = regexp.MustCompile(`{{([^{}]*)}}`)
	tokenNameRegex = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// PlaceholderScan is the result of scanning template text.
type PlaceholderScan struct {
	Placeholders []string `json:"placeholders"`
	Duplicates   []string `json:"duplicates"`
	Reserved     []string `json:"reserved"`
}

// IsReserved reports whether name is a system field.
func IsReserved(name string) bool {
	for _, r := range ReservedTokens {
		if r == name {
			return true
		}
	}
	return false
}

// ValidTokenName reports whether name matches the placeholder grammar.
func ValidTokenName(name string) bool {
	return tokenNameRegex.MatchString(name)
}

// ExtractPlaceholders finds {{TOKEN}} markers in text. Whitespace inside the
// braces is ignored; names outside [A-Z0-9_] are skipped.
func ExtractPlaceholders(text string) PlaceholderScan {
	scan := PlaceholderScan{
		Placeholders: []string{},
		Duplicates:   []string{},
		Reserved:     []string{},
	}
	counts := make(map[string]int)
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if !ValidTokenName(name) {
			continue
		}
		counts[name]++
		switch counts[name] {
		case 1:
			if IsReserved(name) {
				scan.Reserved = append(scan.Reserved, name)
			} else {
				scan.Placeholders = append(scan.Placeholders, name)
			}
		case 2:
			if !IsReserved(name) {
				scan.Duplicates = append(scan.Duplicates, name)
			}
		}
	}
	return scan
}

// RequirePlaceholders scans text and fails with ErrNoPlaceholders when no
// user-facing placeholder is present.
func RequirePlaceholders(text string) (PlaceholderScan, error) {
	scan := ExtractPlaceholders(text)
	if len(scan.Placeholders) == 0 {
		return scan, ErrNoPlaceholders
	}
	return scan, nil
}

// MissingValues returns, in placeholder order, the fields whose value is empty
// after trimming.
func MissingValues(placeholders []string, values map[string]string) []string {
	var missing []string
	for _, p := range placeholders {
		if strings.TrimSpace(values[p]) == "" {
			missing = append(missing, p)
		}
	}
	return missing
}

// MissingValuesMessage formats the validation message for missing fields.
func MissingValuesMessage(missing []string) string {
	return "missing values for field(s): " + strings.Join(missing, ", ")
}
