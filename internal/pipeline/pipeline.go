// Package pipeline runs uploads through normalization, recognition and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/asr"
	"github.com/starford/scriptorium/internal/export"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/repository"
)

// Normalizer converts arbitrary media into the engine's input format.
type Normalizer interface {
	Normalize(ctx context.Context, input []byte, outputPath string) error
}

// Saver persists a finished transcript.
type Saver interface {
	Save(ctx context.Context, req repository.SaveRequest) (*models.Item, error)
}

// Upload is one media file received from a user.
type Upload struct {
	Filename string
	Data     []byte
}

// Outcome is the result of recognition. Empty is set when the engine found
// no speech; it is not an error.
type Outcome struct {
	Segments []models.Segment
	Info     models.TranscriptionInfo
	Empty    bool
}

// SaveOptions control the document export of a saved transcript.
type SaveOptions struct {
	Style             models.Style
	IncludeTimestamps bool
}

// Artifacts are the exported renderings of an outcome.
type Artifacts struct {
	Text string
	SRT  string
	DOCX []byte
}

// Service orchestrates a transcription request.
type Service struct {
	norm       Normalizer
	saver      Saver
	engine     asr.Engine
	asrOpts    asr.Options
	scratchDir string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEngine sets the speech engine. Without one every request fails with
// apperr.ErrEngineUnavailable.
func WithEngine(e asr.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithASROptions sets the recognition options.
func WithASROptions(o asr.Options) Option {
	return func(s *Service) { s.asrOpts = o }
}

// WithScratchDir sets where normalized audio is written.
func WithScratchDir(dir string) Option {
	return func(s *Service) { s.scratchDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(norm Normalizer, saver Saver, opts ...Option) *Service {
	s := &Service{
		norm:    norm,
		saver:   saver,
		asrOpts: asr.DefaultOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether an engine is configured.
func (s *Service) Ready() bool { return s.engine != nil }

// Transcribe normalizes the upload and runs the engine over it.
func (s *Service) Transcribe(ctx context.Context, up Upload) (*Outcome, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("pipeline: %w", apperr.ErrEngineUnavailable)
	}
	start := time.Now()

	wav, err := os.CreateTemp(s.scratchDir, "scriptorium-*.wav")
	if err != nil {
		return nil, fmt.Errorf("pipeline: create scratch: %w", err)
	}
	wavPath := wav.Name()
	defer func() {
		if err := os.Remove(wavPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("pipeline: remove scratch failed",
				slog.String("path", wavPath),
				slog.String("error", err.Error()))
		}
	}()
	if err := wav.Close(); err != nil {
		return nil, fmt.Errorf("pipeline: close scratch: %w", err)
	}

	if err := s.norm.Normalize(ctx, up.Data, wavPath); err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", up.Filename, err)
	}
	res, err := s.engine.Transcribe(ctx, wavPath, s.asrOpts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", up.Filename, err)
	}

	out := &Outcome{Segments: res.Segments, Info: res.Info, Empty: len(res.Segments) == 0}
	out.Info.Language = out.Info.LanguageOrUnknown()
	s.logger.Info("pipeline: transcribed",
		slog.String("filename", up.Filename),
		slog.Int("segments", len(out.Segments)),
		slog.String("language", out.Info.Language),
		slog.String("elapsed", time.Since(start).Round(time.Millisecond).String()))
	return out, nil
}

// TranscribeAndSave transcribes the upload and saves it. For an upload
// without speech nothing is saved and the item is nil.
func (s *Service) TranscribeAndSave(ctx context.Context, up Upload, opts SaveOptions) (*models.Item, *Outcome, error) {
	out, err := s.Transcribe(ctx, up)
	if err != nil {
		return nil, nil, err
	}
	if out.Empty {
		return nil, out, nil
	}
	item, err := s.saver.Save(ctx, repository.SaveRequest{
		Filename:          up.Filename,
		Info:              out.Info,
		Segments:          out.Segments,
		Style:             opts.Style,
		IncludeTimestamps: opts.IncludeTimestamps,
	})
	if err != nil {
		return nil, out, fmt.Errorf("pipeline: %w", err)
	}
	return item, out, nil
}

// Preview renders the outcome in every export format without saving it.
func Preview(out *Outcome, opts SaveOptions) (*Artifacts, error) {
	docx, err := export.DOCX(out.Segments, opts.Style, opts.IncludeTimestamps, export.DefaultTitle)
	if err != nil {
		return nil, fmt.Errorf("pipeline: preview: %w", err)
	}
	return &Artifacts{
		Text: export.Plaintext(out.Segments),
		SRT:  export.SRT(out.Segments),
		DOCX: docx,
	}, nil
}
