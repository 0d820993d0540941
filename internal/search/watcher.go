package search

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// debounce collapses the burst of events an index rewrite produces.
const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the repository root and re-syncs the
// database whenever the index file changes, until ctx is cancelled. It calls
// cb (if non-nil) for every transcript the sync added, changed or removed.
//
// The index is replaced by rename, so the watch is on the directory and
// events are filtered by base name.
func Watch(ctx context.Context, db *DB, src Source, root, indexFile string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	// Events are derived from this snapshot rather than from what Sync
	// wrote: another writer (an upload indexing its own item, or a second
	// process sharing the database) may have updated the rows already.
	known, err := db.AllChecksums()
	if err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			known = reconcile(ctx, db, src, logger, cb, known)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != indexFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				logger.Debug("watcher: index changed", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile syncs the database and reports every difference between the
// rows before (known) and after. It returns the new snapshot.
func reconcile(ctx context.Context, db *DB, src Source, logger *slog.Logger, cb EventCallback, known map[string]string) map[string]string {
	if _, err := Sync(ctx, db, src, logger); err != nil {
		logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
		return known
	}
	current, err := db.AllChecksums()
	if err != nil {
		logger.Warn("watcher: read checksums failed", slog.String("error", err.Error()))
		return known
	}
	if cb == nil {
		return current
	}

	ch := diff(known, current)
	for _, id := range ch.Created {
		cb("created", id)
	}
	for _, id := range ch.Updated {
		cb("updated", id)
	}
	for _, id := range ch.Deleted {
		cb("deleted", id)
	}
	return current
}

// diff compares two id → checksum snapshots. Ids are sorted within each kind.
func diff(before, after map[string]string) Changes {
	var ch Changes
	for id, cs := range after {
		old, ok := before[id]
		switch {
		case !ok:
			ch.Created = append(ch.Created, id)
		case old != cs:
			ch.Updated = append(ch.Updated, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			ch.Deleted = append(ch.Deleted, id)
		}
	}
	slices.Sort(ch.Created)
	slices.Sort(ch.Updated)
	slices.Sort(ch.Deleted)
	return ch
}
