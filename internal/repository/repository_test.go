package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/export"
	"github.com/starford/scriptorium/internal/models"
)

var sampleSegments = []models.Segment{
	{Start: 0, End: 1.5, Text: " Hello "},
	{Start: 1.5, End: 3, Text: "World"},
}

func testRepo(t *testing.T, opts ...Option) (string, *Repository) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	r, err := New(root, opts...)
	require.NoError(t, err)
	return root, r
}

func sampleRequest(filename string) SaveRequest {
	return SaveRequest{
		Filename:          filename,
		Info:              models.TranscriptionInfo{Language: "en", Duration: 3.25},
		Segments:          sampleSegments,
		Style:             models.StyleBulletList,
		IncludeTimestamps: true,
	}
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, r := testRepo(t)

	item, err := r.Save(ctx, sampleRequest("talk.mp4"))
	require.NoError(t, err)
	assert.True(t, ValidID(item.ID), "id %q", item.ID)

	text, err := r.ReadText(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, export.Plaintext(sampleSegments), text)

	meta, err := r.ReadMeta(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, meta)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, item.ID, entries[0].ID)
	assert.Equal(t, item.Entry(), entries[0])
}

func TestSaveWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	root, r := testRepo(t)

	item, err := r.Save(ctx, sampleRequest("talk.mp4"))
	require.NoError(t, err)

	srt, err := os.ReadFile(filepath.Join(root, item.ID, SubtitleFile))
	require.NoError(t, err)
	assert.Equal(t, export.SRT(sampleSegments), string(srt))

	docx, err := r.ReadArtifact(ctx, item.ID, models.ArtifactDOCX)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(docx[:2]))

	assert.Equal(t, models.ArtifactPaths{
		TXT:  item.ID + "/transcript.txt",
		SRT:  item.ID + "/subtitles.srt",
		DOCX: item.ID + "/transcript.docx",
	}, item.Paths)
}

func TestMetaFileFormat(t *testing.T) {
	ctx := context.Background()
	fixed := time.Unix(1700000000, 500000000)
	root, r := testRepo(t, WithClock(func() time.Time { return fixed }))

	req := sampleRequest("a<b>.mp4")
	req.Info.Language = ""
	item, err := r.Save(ctx, req)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(root, item.ID, MetaFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"id\": \""+item.ID+"\"")
	assert.Contains(t, string(raw), `"filename": "a<b>.mp4"`)
	assert.Contains(t, string(raw), `"language": "unknown"`)
	assert.Contains(t, string(raw), `"created_at": 1700000000.5`)
	assert.Contains(t, string(raw), `"style": "Bullet List"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"id", "filename", "created_at", "language", "duration", "style", "include_timestamps", "paths"} {
		assert.Contains(t, decoded, key)
	}
}

func TestListFreshRepository(t *testing.T) {
	ctx := context.Background()
	root, r := testRepo(t)

	_, err := os.Stat(root)
	require.True(t, os.IsNotExist(err), "root must not exist before first use")

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)

	raw, err := os.ReadFile(filepath.Join(root, IndexFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items": []}`, string(raw))

	again, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestListIsStable(t *testing.T) {
	ctx := context.Background()
	_, r := testRepo(t)
	for _, name := range []string{"a.mp3", "b.wav", "c.mkv"} {
		_, err := r.Save(ctx, sampleRequest(name))
		require.NoError(t, err)
	}

	first, err := r.List(ctx)
	require.NoError(t, err)
	second, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	names := []string{first[0].Filename, first[1].Filename, first[2].Filename}
	assert.Equal(t, []string{"a.mp3", "b.wav", "c.mkv"}, names)
}

func TestReadUnknownID(t *testing.T) {
	ctx := context.Background()
	_, r := testRepo(t)

	for _, id := range []string{"0123456789ab", "../../etc/passwd", "", "ABCDEF012345"} {
		_, err := r.ReadMeta(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "meta %q", id)
		_, err = r.ReadText(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "text %q", id)
		_, err = r.ReadArtifact(ctx, id, models.ArtifactSRT)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "artifact %q", id)
	}
}

func TestReadArtifactUnknownKind(t *testing.T) {
	ctx := context.Background()
	_, r := testRepo(t)
	item, err := r.Save(ctx, sampleRequest("a.mp3"))
	require.NoError(t, err)

	_, err = r.ReadArtifact(ctx, item.ID, models.ArtifactKind("pdf"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSaveEmptySegments(t *testing.T) {
	ctx := context.Background()
	_, r := testRepo(t)

	req := sampleRequest("silence.wav")
	req.Segments = nil
	_, err := r.Save(ctx, req)
	require.ErrorIs(t, err, apperr.ErrEmptyTranscript)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorruptIndex(t *testing.T) {
	ctx := context.Background()
	root, r := testRepo(t)
	_, err := r.List(ctx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexFile), []byte("{not json"), 0o644))

	_, err = r.List(ctx)
	assert.ErrorIs(t, err, apperr.ErrCorrupt)

	_, err = r.Save(ctx, sampleRequest("a.mp3"))
	assert.ErrorIs(t, err, apperr.ErrCorrupt)

	raw, _ := os.ReadFile(filepath.Join(root, IndexFile))
	assert.Equal(t, "{not json", string(raw), "corrupt index must not be repaired")
}

func TestConcurrentSavesKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	root, r := testRepo(t)
	other, err := New(root)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		repo := r
		if i%2 == 1 {
			repo = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, sampleRequest("clip.wav"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, n)

	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.ID] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	root, r := testRepo(t)

	kept, err := r.Save(ctx, sampleRequest("kept.mp3"))
	require.NoError(t, err)
	lost, err := r.Save(ctx, sampleRequest("lost.mp3"))
	require.NoError(t, err)

	report, err := r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent())

	// Simulate a crash after the artifact writes: a directory with no index entry.
	orphanID := "aaaaaaaaaaaa"
	require.NoError(t, os.MkdirAll(filepath.Join(root, orphanID), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, orphanID, MetaFile), []byte("{}"), 0o644))
	// And an index entry whose files disappeared.
	require.NoError(t, os.RemoveAll(filepath.Join(root, lost.ID)))

	report, err = r.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{orphanID}, report.Orphans)
	assert.Equal(t, []string{lost.ID}, report.Dangling)
	assert.NotContains(t, report.Dangling, kept.ID)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
