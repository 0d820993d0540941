package transcriptservice_test

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/asr"
	"github.com/starford/scriptorium/internal/media"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/prompt"
	"github.com/starford/scriptorium/internal/repository"
	"github.com/starford/scriptorium/internal/search"
	"github.com/starford/scriptorium/internal/testutil"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

func TestGetAndArtifact(t *testing.T) {
	_, repo := testutil.TestRepo(t)
	item := testutil.SaveSample(t, repo, "talk.mp4")
	svc := transcriptservice.NewService(repo)

	detail, err := svc.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "talk.mp4", detail.Filename)
	assert.Equal(t, "Hello\nWorld", detail.Text)

	srt, err := svc.Artifact(context.Background(), item.ID, models.ArtifactSRT)
	require.NoError(t, err)
	assert.Contains(t, string(srt), "00:00:01,500 --> 00:00:03,000")

	_, err = svc.Get(context.Background(), "ffffffffffff")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearchScanWithoutIndex(t *testing.T) {
	_, repo := testutil.TestRepo(t)
	testutil.SaveSample(t, repo, "standup.mp3", models.Segment{Start: 0, End: 1, Text: "Quarterly Budget review"})
	testutil.SaveSample(t, repo, "other.mp3", models.Segment{Start: 0, End: 1, Text: "unrelated"})
	svc := transcriptservice.NewService(repo)

	hits, err := svc.Search(context.Background(), "budget", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "standup.mp3", hits[0].Filename)
	assert.Contains(t, hits[0].Snippet, "Budget")

	hits, err = svc.Search(context.Background(), "OTHER", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1, "filename matches count")
}

func TestUploadIndexesForSearch(t *testing.T) {
	_, repo := testutil.TestRepo(t)
	db := testutil.TestDB(t)
	eng := &testutil.Engine{Result: &asr.Result{
		Segments: []models.Segment{{Start: 0, End: 2, Text: "searchable upload"}},
		Info:     models.TranscriptionInfo{Language: "en", Duration: 2},
	}}
	norm := media.NewNormalizer(media.WithBinary(testutil.FakeFFmpeg(t)), media.WithScratchDir(t.TempDir()))
	pipe := pipeline.NewService(norm, repo, pipeline.WithEngine(eng), pipeline.WithScratchDir(t.TempDir()))
	svc := transcriptservice.NewService(repo, transcriptservice.WithSearch(db), transcriptservice.WithPipeline(pipe))
	require.True(t, svc.CanTranscribe())

	item, out, err := svc.Upload(context.Background(),
		pipeline.Upload{Filename: "up.wav", Data: []byte("x")},
		pipeline.SaveOptions{Style: models.StyleBulletList})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.False(t, out.Empty)

	hits, err := svc.Search(context.Background(), "searchable", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, item.ID, hits[0].ID)
}

func TestUploadWithoutPipeline(t *testing.T) {
	_, repo := testutil.TestRepo(t)
	svc := transcriptservice.NewService(repo)
	assert.False(t, svc.CanTranscribe())

	_, _, err := svc.Upload(context.Background(), pipeline.Upload{Filename: "a.wav"}, pipeline.SaveOptions{})
	assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
}

func TestBuildPromptUsesSession(t *testing.T) {
	_, repo := testutil.TestRepo(t)
	item := testutil.SaveSample(t, repo, "a.mp3")
	svc := transcriptservice.NewService(repo)

	var sess prompt.Session
	sess.SetTemplate("<<{combined_transcripts}>>")

	res, err := svc.BuildPrompt(context.Background(), &sess, []string{item.ID}, nil)
	require.NoError(t, err)
	assert.False(t, res.MarkerMissing)
	assert.Contains(t, res.Prompt, "<<\n=== a.mp3")
	assert.Equal(t, res.Prompt, sess.LastPrompt())

	override := "no marker here"
	res, err = svc.BuildPrompt(context.Background(), &sess, []string{item.ID}, &override)
	require.NoError(t, err)
	assert.True(t, res.MarkerMissing)
	assert.Equal(t, override, res.Prompt)
	assert.Equal(t, "<<{combined_transcripts}>>", sess.Template(), "override must not change the session template")
}

func TestUploadEmitsCreatedThroughWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root, repo := testutil.TestRepo(t)
	_, err := repo.List(ctx)
	require.NoError(t, err)
	db := testutil.TestDB(t)

	eng := &testutil.Engine{Result: &asr.Result{
		Segments: []models.Segment{{Start: 0, End: 1, Text: "announced"}},
		Info:     models.TranscriptionInfo{Language: "en", Duration: 1},
	}}
	norm := media.NewNormalizer(media.WithBinary(testutil.FakeFFmpeg(t)), media.WithScratchDir(t.TempDir()))
	pipe := pipeline.NewService(norm, repo, pipeline.WithEngine(eng), pipeline.WithScratchDir(t.TempDir()))
	svc := transcriptservice.NewService(repo, transcriptservice.WithSearch(db), transcriptservice.WithPipeline(pipe))

	var mu sync.Mutex
	var events []string
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		_ = search.Watch(ctx, db, repo, root, repository.IndexFile, logger, func(kind, id string) {
			mu.Lock()
			events = append(events, kind+":"+id)
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	item, _, err := svc.Upload(ctx,
		pipeline.Upload{Filename: "news.wav", Data: []byte("x")},
		pipeline.SaveOptions{Style: models.StyleMinimal})
	require.NoError(t, err)
	require.NotNil(t, item)

	// The upload indexed the row itself; the watcher must still announce it.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(events, "created:"+item.ID)
	}, 5*time.Second, 50*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"created:" + item.ID}, events, "exactly one event per upload")
}
