package templates

import "time"

// Template is an uploaded DOCX certificate template.
type Template struct {
	ID           string
	Name         string
	FileName     string
	StorageKey   string
	MimeType     string
	SizeBytes    int64
	Placeholders []string
	PreviewKey   string
	Enabled      bool
	CreatedAt    time.Time
}
