// Package apperr defines the sentinel errors shared across the pipeline.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConfiguration     = errors.New("configuration error")
	ErrConversion        = errors.New("conversion failed")
	ErrCorrupt           = errors.New("corrupt record")
	ErrEmptyTranscript   = errors.New("no speech detected")
	ErrEngineUnavailable = errors.New("speech engine unavailable")
)
