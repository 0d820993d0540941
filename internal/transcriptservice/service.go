// Package transcriptservice is the application layer shared by the REST API,
// the MCP server and the CLI. It coordinates the repository, the search
// index, the transcription pipeline and prompt assembly.
package transcriptservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/checksum"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/prompt"
	"github.com/starford/scriptorium/internal/repository"
	"github.com/starford/scriptorium/internal/search"
)

// TranscriptDetail is the full representation of a saved transcript.
type TranscriptDetail struct {
	*models.Item
	Text string `json:"text"`
}

// PromptResult is a rendered prompt. MarkerMissing is set when the template
// had no substitution marker, in which case Prompt equals the template.
type PromptResult struct {
	Prompt        string `json:"prompt"`
	MarkerMissing bool   `json:"marker_missing"`
}

// Service coordinates repository, search and pipeline operations.
type Service struct {
	repo     *repository.Repository
	db       search.Index
	pipeline *pipeline.Service
	builder  *prompt.Builder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSearch enables the SQLite search index. Without it Search scans the
// repository.
func WithSearch(db search.Index) Option {
	return func(s *Service) { s.db = db }
}

// WithPipeline enables uploads.
func WithPipeline(p *pipeline.Service) Option {
	return func(s *Service) { s.pipeline = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new transcript service.
func NewService(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		builder: prompt.NewBuilder(repo),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the underlying repository.
func (s *Service) Repository() *repository.Repository { return s.repo }

// CanTranscribe reports whether uploads can be processed.
func (s *Service) CanTranscribe() bool {
	return s.pipeline != nil && s.pipeline.Ready()
}

// List returns every saved transcript in insertion order.
func (s *Service) List(ctx context.Context) ([]models.IndexEntry, error) {
	return s.repo.List(ctx)
}

// Get returns the metadata and plaintext of id.
func (s *Service) Get(ctx context.Context, id string) (*TranscriptDetail, error) {
	item, err := s.repo.ReadMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := s.repo.ReadText(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TranscriptDetail{Item: item, Text: text}, nil
}

// Artifact returns one exported file of id.
func (s *Service) Artifact(ctx context.Context, id string, kind models.ArtifactKind) ([]byte, error) {
	return s.repo.ReadArtifact(ctx, id, kind)
}

// Transcribe runs an upload through the pipeline without saving it.
func (s *Service) Transcribe(ctx context.Context, up pipeline.Upload) (*pipeline.Outcome, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("transcriptservice: %w", apperr.ErrEngineUnavailable)
	}
	return s.pipeline.Transcribe(ctx, up)
}

// Upload transcribes and saves a media file, then indexes it for search.
// A nil item with a non-nil outcome means no speech was found.
func (s *Service) Upload(ctx context.Context, up pipeline.Upload, opts pipeline.SaveOptions) (*models.Item, *pipeline.Outcome, error) {
	if s.pipeline == nil {
		return nil, nil, fmt.Errorf("transcriptservice: %w", apperr.ErrEngineUnavailable)
	}
	item, out, err := s.pipeline.TranscribeAndSave(ctx, up, opts)
	if err != nil || item == nil {
		return item, out, err
	}
	if err := s.IndexItem(ctx, item); err != nil {
		// The watcher reconciles the index later; the save itself succeeded.
		s.logger.Warn("index after upload failed", slog.String("id", item.ID), slog.String("error", err.Error()))
	}
	return item, out, nil
}

// IndexItem upserts a saved item into the search index. It is a no-op when
// search is disabled.
func (s *Service) IndexItem(ctx context.Context, item *models.Item) error {
	if s.db == nil {
		return nil
	}
	text, err := s.repo.ReadText(ctx, item.ID)
	if err != nil {
		return err
	}
	e := item.Entry()
	return s.db.Upsert(search.Row{
		ID:        e.ID,
		Filename:  e.Filename,
		Language:  e.Language,
		Duration:  e.Duration,
		Style:     string(e.Style),
		CreatedAt: e.CreatedAt,
		Checksum:  checksum.Entry(e, text),
	}, text)
}

// Search finds transcripts whose filename or text matches query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	return s.scan(ctx, query, limit)
}

// scan is the index-free search: a case-insensitive substring match.
func (s *Service) scan(ctx context.Context, query string, limit int) ([]search.Result, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := []search.Result{}
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		text, err := s.repo.ReadText(ctx, e.ID)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), needle) && !strings.Contains(strings.ToLower(e.Filename), needle) {
			continue
		}
		out = append(out, search.Result{ID: e.ID, Filename: e.Filename, Snippet: search.Snippet(text, query)})
	}
	return out, nil
}

// BuildPrompt renders ids into a prompt and records it as the session's last
// prompt. A nil template uses the session template.
func (s *Service) BuildPrompt(ctx context.Context, sess *prompt.Session, ids []string, template *string) (*PromptResult, error) {
	tmpl := sess.Template()
	if template != nil {
		tmpl = *template
	}
	out, err := s.builder.Build(ctx, ids, tmpl)
	if err != nil {
		return nil, err
	}
	sess.Record(out)
	return &PromptResult{Prompt: out, MarkerMissing: !prompt.HasMarker(tmpl)}, nil
}

// Check reports repository inconsistencies.
func (s *Service) Check(ctx context.Context) (repository.Report, error) {
	return s.repo.Check(ctx)
}
