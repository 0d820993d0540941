package search

import (
	"context"
	"log/slog"

	"github.com/starford/scriptorium/internal/checksum"
	"github.com/starford/scriptorium/internal/models"
)

// Source is the read side of the transcript repository.
type Source interface {
	List(ctx context.Context) ([]models.IndexEntry, error)
	ReadText(ctx context.Context, id string) (string, error)
}

// Changes lists the ids a Sync added or removed.
type Changes struct {
	Created []string
	Updated []string
	Deleted []string
}

// Empty reports whether the sync changed nothing.
func (c Changes) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Sync brings the database up to date with the repository index:
//   - new/changed transcripts are read and upserted
//   - ids no longer in the index are deleted
//
// Unreadable transcripts are logged and skipped; a failure to list the
// index aborts the sync.
func Sync(ctx context.Context, db *DB, src Source, logger *slog.Logger) (Changes, error) {
	var ch Changes
	entries, err := src.List(ctx)
	if err != nil {
		return ch, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return ch, err
	}

	listed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		listed[e.ID] = struct{}{}

		text, err := src.ReadText(ctx, e.ID)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Entry(e, text)
		old, known := checksums[e.ID]
		if old == cs {
			continue
		}
		if err := db.Upsert(rowFor(e, cs), text); err != nil {
			logger.Warn("sync: index failed", slog.String("id", e.ID), slog.String("error", err.Error()))
			continue
		}
		if known {
			ch.Updated = append(ch.Updated, e.ID)
		} else {
			ch.Created = append(ch.Created, e.ID)
		}
		logger.Debug("sync: indexed", slog.String("id", e.ID))
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := listed[id]; ok {
			continue
		}
		if err := db.Delete(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		ch.Deleted = append(ch.Deleted, id)
		logger.Debug("sync: removed stale", slog.String("id", id))
	}
	return ch, nil
}

func rowFor(e models.IndexEntry, cs string) Row {
	return Row{
		ID:        e.ID,
		Filename:  e.Filename,
		Language:  e.Language,
		Duration:  e.Duration,
		Style:     string(e.Style),
		CreatedAt: e.CreatedAt,
		Checksum:  cs,
	}
}
