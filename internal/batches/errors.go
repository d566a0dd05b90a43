package batches

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates an unreadable or empty bulk file.
	ErrInvalidInput = errors.New("invalid input")

	// ErrArchiveNotFound indicates the archive never existed or has expired.
	ErrArchiveNotFound = errors.New("batch archive not found")
)

// BatchFailedError is returned when no row of a batch produced a document.
type BatchFailedError struct {
	BatchID string
	Errors  []RowError
}

func (e *BatchFailedError) Error() string {
	return fmt.Sprintf("all %d rows failed; no certificates were generated", len(e.Errors))
}
