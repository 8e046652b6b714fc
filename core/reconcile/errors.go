package reconcile

import "errors"

var (
	// ErrNotFound is returned when a plate is not tracked by the completion index.
	ErrNotFound = errors.New("vehicle not found")
	// ErrMalformedLine is returned for an import line that cannot be parsed.
	ErrMalformedLine = errors.New("malformed import line")
	// ErrTransport is returned when the import source cannot be read.
	ErrTransport = errors.New("import source unavailable")
)
