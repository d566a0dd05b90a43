package documents

import (
	"errors"

	"verifycert-backend/internal/extract"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)

// MissingValuesError lists placeholders that received no value.
type MissingValuesError struct {
	Fields []string
}

func (e *MissingValuesError) Error() string {
	return extract.MissingValuesMessage(e.Fields)
}

func (e *MissingValuesError) Unwrap() error { return ErrInvalidInput }
