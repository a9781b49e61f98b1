package wizard

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("wizard: aborted")
	// ErrUnknownFormat is returned for unsupported output formats.
	ErrUnknownFormat = errors.New("wizard: unknown output format")
)
