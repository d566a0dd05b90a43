package templates

import "errors"

var (
	// ErrNotFound indicates the template does not exist.
	ErrNotFound = errors.New("template not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateName indicates another template already uses the name.
	ErrDuplicateName = errors.New("template name already exists")

	// ErrDisabled indicates the template exists but may not be used for generation.
	ErrDisabled = errors.New("template is disabled")

	ErrNoPreview = errors.New("template has no preview")
)
