package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "scriptorium-search-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memSource is an in-memory repository.
type memSource struct {
	entries []models.IndexEntry
	texts   map[string]string
	listErr error
}

func (m *memSource) add(id, filename, text string) {
	if m.texts == nil {
		m.texts = make(map[string]string)
	}
	m.entries = append(m.entries, models.IndexEntry{ID: id, Filename: filename, Language: "en", Duration: 1})
	m.texts[id] = text
}

func (m *memSource) remove(id string) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

func (m *memSource) List(context.Context) ([]models.IndexEntry, error) {
	return m.entries, m.listErr
}

func (m *memSource) ReadText(_ context.Context, id string) (string, error) {
	text, ok := m.texts[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return text, nil
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	n, err := db.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertReplaces(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Upsert(Row{ID: "aaaaaaaaaaaa", Filename: "old.mp3", Checksum: "1"}, "original words"))
	require.NoError(t, db.Upsert(Row{ID: "aaaaaaaaaaaa", Filename: "new.mp3", Checksum: "2"}, "replacement words"))

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cs, err := db.AllChecksums()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"aaaaaaaaaaaa": "2"}, cs)

	hits, err := db.Search("original", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = db.Search("replacement", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new.mp3", hits[0].Filename)
}

func TestSearchBasic(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Upsert(Row{ID: "aaaaaaaaaaaa", Filename: "a.mp3"}, "the quarterly uniqueword review"))
	require.NoError(t, db.Upsert(Row{ID: "bbbbbbbbbbbb", Filename: "b.mp3"}, "nothing relevant"))

	hits, err := db.Search("uniqueword", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "aaaaaaaaaaaa", hits[0].ID)
	assert.NotEmpty(t, hits[0].Snippet)
}

func TestSearchNoHitsIsEmptySlice(t *testing.T) {
	db := testDB(t)
	hits, err := db.Search("absent", 10)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Upsert(Row{ID: "aaaaaaaaaaaa"}, "vanishing content"))
	require.NoError(t, db.Delete("aaaaaaaaaaaa"))

	hits, err := db.Search("vanishing", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSyncMirrorsSource(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	src := &memSource{}
	src.add("aaaaaaaaaaaa", "a.mp3", "alpha words")
	src.add("bbbbbbbbbbbb", "b.mp3", "beta words")

	ch, err := Sync(ctx, db, src, quietLogger())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"aaaaaaaaaaaa", "bbbbbbbbbbbb"}, ch.Created)

	// Second pass is a no-op thanks to checksums.
	ch, err = Sync(ctx, db, src, quietLogger())
	require.NoError(t, err)
	assert.True(t, ch.Empty())

	src.remove("aaaaaaaaaaaa")
	src.texts["bbbbbbbbbbbb"] = "beta words revised"
	ch, err = Sync(ctx, db, src, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaaaaaaaaa"}, ch.Deleted)
	assert.Equal(t, []string{"bbbbbbbbbbbb"}, ch.Updated)

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncSkipsUnreadable(t *testing.T) {
	db := testDB(t)
	src := &memSource{}
	src.add("aaaaaaaaaaaa", "a.mp3", "alpha")
	src.entries = append(src.entries, models.IndexEntry{ID: "cccccccccccc", Filename: "gone.mp3"})

	ch, err := Sync(context.Background(), db, src, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaaaaaaaaaa"}, ch.Created)
}

func TestSyncListError(t *testing.T) {
	db := testDB(t)
	src := &memSource{listErr: apperr.ErrCorrupt}
	_, err := Sync(context.Background(), db, src, quietLogger())
	assert.True(t, errors.Is(err, apperr.ErrCorrupt))
}
