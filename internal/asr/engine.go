// Package asr adapts external speech-recognition engines.
package asr

import (
	"context"

	"github.com/starford/scriptorium/internal/models"
)

// Options tunes one recognition run.
type Options struct {
	BeamSize  int
	VADFilter bool
	// Language forces the spoken language; empty lets the engine detect it.
	Language string
}

// DefaultOptions mirrors the engine defaults.
func DefaultOptions() Options {
	return Options{BeamSize: 5, VADFilter: true}
}

// Result is the output of one recognition run. Segments are ordered by start
// offset; an empty slice means no speech was detected.
type Result struct {
	Segments []models.Segment
	Info     models.TranscriptionInfo
}

// Engine turns a normalized audio file into segments. Implementations must be
// safe for concurrent use.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

// Opener constructs an engine for the given compute type.
type Opener func(ctx context.Context, computeType string) (Engine, error)
