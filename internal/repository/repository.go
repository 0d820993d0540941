// Package repository persists saved transcripts: one directory per item
// holding the exported artifacts and a metadata record, plus a single JSON
// index summarizing every item.
package repository

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/export"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/storage"
)

// File names inside the repository.
const (
	IndexFile    = "index.json"
	MetaFile     = "meta.json"
	TextFile     = "transcript.txt"
	SubtitleFile = "subtitles.srt"
	DocumentFile = "transcript.docx"

	lockFile = IndexFile + ".lock"
)

var idRe = regexp.MustCompile(`^[0-9a-f]{12}$`)

// ValidID reports whether id has the 12-character lowercase hex form.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// Repository stores transcripts under a root directory.
//
// Index rewrites are serialized by an in-process mutex and a lock file, and
// the index is replaced by atomic rename, so concurrent savers never lose
// entries and a crash never leaves a half-written index.
type Repository struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	initMu sync.Mutex
	store  storage.Provider

	indexMu sync.Mutex
	lock    *flock.Flock
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New creates a repository rooted at root. Nothing is written to disk until
// the first operation.
func New(root string, opts ...Option) (*Repository, error) {
	if root == "" {
		return nil, fmt.Errorf("repository: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("repository: resolve root: %w", err)
	}
	r := &Repository{
		root:   abs,
		logger: slog.Default(),
		now:    time.Now,
		newID:  newID,
		lock:   flock.New(filepath.Join(abs, lockFile)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute repository directory.
func (r *Repository) Root() string { return r.root }

// newID returns the first 12 hex characters of a random UUID.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:12]
}

// ensure creates the root directory and an empty index if they are missing.
// It is idempotent.
func (r *Repository) ensure() (storage.Provider, error) {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	if r.store != nil && r.store.Exists(IndexFile) {
		return r.store, nil
	}

	store, err := storage.NewFS(r.root)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	err = r.withIndexLock(func() error {
		if store.Exists(IndexFile) {
			return nil
		}
		return writeJSON(store, IndexFile, models.Index{Items: []models.IndexEntry{}})
	})
	if err != nil {
		return nil, fmt.Errorf("repository: create index: %w", err)
	}
	r.store = store
	return store, nil
}

// withIndexLock runs fn while holding both the in-process and the file lock.
func (r *Repository) withIndexLock(fn func() error) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("repository: release index lock failed", slog.String("error", err.Error()))
		}
	}()
	return fn()
}

// SaveRequest carries everything needed to persist one transcript.
type SaveRequest struct {
	Filename          string
	Info              models.TranscriptionInfo
	Segments          []models.Segment
	Style             models.Style
	IncludeTimestamps bool
}

// Save exports the segments, writes the artifacts and metadata under a fresh
// id, and appends the item to the index.
func (r *Repository) Save(ctx context.Context, req SaveRequest) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("repository: save %q: %w", req.Filename, apperr.ErrEmptyTranscript)
	}
	store, err := r.ensure()
	if err != nil {
		return nil, err
	}

	id := r.newID()
	docx, err := export.DOCX(req.Segments, req.Style, req.IncludeTimestamps, export.DefaultTitle)
	if err != nil {
		return nil, fmt.Errorf("repository: save %q: %w", req.Filename, err)
	}

	item := &models.Item{
		ID:                id,
		Filename:          req.Filename,
		CreatedAt:         unixSeconds(r.now()),
		Language:          req.Info.LanguageOrUnknown(),
		Duration:          req.Info.Duration,
		Style:             req.Style,
		IncludeTimestamps: req.IncludeTimestamps,
		Paths: models.ArtifactPaths{
			TXT:  path.Join(id, TextFile),
			SRT:  path.Join(id, SubtitleFile),
			DOCX: path.Join(id, DocumentFile),
		},
	}

	artifacts := []struct {
		path string
		data []byte
	}{
		{item.Paths.TXT, []byte(export.Plaintext(req.Segments))},
		{item.Paths.SRT, []byte(export.SRT(req.Segments))},
		{item.Paths.DOCX, docx},
	}
	for _, a := range artifacts {
		if err := store.Write(a.path, a.data); err != nil {
			return nil, fmt.Errorf("repository: save %s: %w", id, err)
		}
	}
	if err := writeJSON(store, path.Join(id, MetaFile), item); err != nil {
		return nil, fmt.Errorf("repository: save %s meta: %w", id, err)
	}

	err = r.withIndexLock(func() error {
		idx, err := readIndex(store)
		if err != nil {
			return err
		}
		idx.Items = append(idx.Items, item.Entry())
		return writeJSON(store, IndexFile, idx)
	})
	if err != nil {
		return nil, fmt.Errorf("repository: index %s: %w", id, err)
	}

	r.logger.Info("repository: saved",
		slog.String("id", id),
		slog.String("filename", req.Filename),
		slog.Int("segments", len(req.Segments)))
	return item, nil
}

// ReadMeta returns the metadata record of id.
func (r *Repository) ReadMeta(ctx context.Context, id string) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := r.ensure()
	if err != nil {
		return nil, err
	}
	data, err := r.readItemFile(store, id, MetaFile)
	if err != nil {
		return nil, fmt.Errorf("repository: read meta %s: %w", id, err)
	}
	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("repository: parse meta %s: %v: %w", id, err, apperr.ErrCorrupt)
	}
	return &item, nil
}

// ReadText returns the plaintext transcript of id.
func (r *Repository) ReadText(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	store, err := r.ensure()
	if err != nil {
		return "", err
	}
	data, err := r.readItemFile(store, id, TextFile)
	if err != nil {
		return "", fmt.Errorf("repository: read text %s: %w", id, err)
	}
	return string(data), nil
}

// ReadArtifact returns the bytes of one exported file of id, located through
// its metadata record.
func (r *Repository) ReadArtifact(ctx context.Context, id string, kind models.ArtifactKind) ([]byte, error) {
	item, err := r.ReadMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	store, err := r.ensure()
	if err != nil {
		return nil, err
	}
	rel := item.Paths.Path(kind)
	if rel == "" {
		return nil, fmt.Errorf("repository: artifact %q of %s: %w", kind, id, apperr.ErrNotFound)
	}
	if path.Dir(rel) != id {
		return nil, fmt.Errorf("repository: artifact %q of %s outside item dir: %w", kind, id, apperr.ErrCorrupt)
	}
	data, err := store.Read(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("repository: artifact %q of %s: %w", kind, id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("repository: artifact %q of %s: %w", kind, id, err)
	}
	return data, nil
}

func (r *Repository) readItemFile(store storage.Provider, id, name string) ([]byte, error) {
	if !ValidID(id) {
		return nil, apperr.ErrNotFound
	}
	data, err := store.Read(path.Join(id, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// List returns every index entry in insertion order. On a fresh repository
// it creates the directory and an empty index and returns no entries.
func (r *Repository) List(ctx context.Context) ([]models.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := r.ensure()
	if err != nil {
		return nil, err
	}
	idx, err := readIndex(store)
	if err != nil {
		return nil, fmt.Errorf("repository: list: %w", err)
	}
	return idx.Items, nil
}

func readIndex(store storage.Provider) (*models.Index, error) {
	data, err := store.Read(IndexFile)
	if err != nil {
		return nil, err
	}
	var idx models.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", IndexFile, err, apperr.ErrCorrupt)
	}
	if idx.Items == nil {
		idx.Items = []models.IndexEntry{}
	}
	return &idx, nil
}

// writeJSON writes v as two-space indented JSON without HTML escaping.
func writeJSON(store storage.Provider, name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return store.Write(name, bytes.TrimRight(buf.Bytes(), "\n"))
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
