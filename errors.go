package annotator

import "errors"

var (
	// ErrUnsupportedFormat is returned for unrecognized document formats.
	ErrUnsupportedFormat = errors.New("annotator: unsupported document format")

	// ErrContainerUnreadable is returned when the document package cannot be
	// opened or its required structural parts are missing.
	ErrContainerUnreadable = errors.New("annotator: document container unreadable")

	// ErrVisionUnavailable is returned when the description provider cannot
	// be constructed from configuration.
	ErrVisionUnavailable = errors.New("annotator: vision provider unavailable")

	// ErrWriteBackUnsupported is returned for formats that can be analyzed
	// but not rewritten.
	ErrWriteBackUnsupported = errors.New("annotator: format does not support write-back")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("annotator: invalid configuration")
)
