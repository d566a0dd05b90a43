package documents

import "time"

// Document is the record of one issued certificate. Its ID is also the
// public verification identifier. Records are never updated.
type Document struct {
	ID         string
	TemplateID string
	Data       map[string]string
	StorageKey string
	FileName   string
	SizeBytes  int64
	BatchID    string
	CreatedAt  time.Time
}
