package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/apperr"
	"github.com/starford/scriptorium/internal/asr"
	"github.com/starford/scriptorium/internal/media"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/testutil"
)

var twoSegments = []models.Segment{
	{Start: 0, End: 1.5, Text: " Hello"},
	{Start: 1.5, End: 3.25, Text: "World "},
}

func newService(t *testing.T, engine asr.Engine, ffmpeg string) (*pipeline.Service, string, string) {
	t.Helper()
	root, repo := testutil.TestRepo(t)
	scratch := t.TempDir()
	norm := media.NewNormalizer(media.WithBinary(ffmpeg), media.WithScratchDir(scratch))
	opts := []pipeline.Option{pipeline.WithScratchDir(scratch)}
	if engine != nil {
		opts = append(opts, pipeline.WithEngine(engine))
	}
	return pipeline.NewService(norm, repo, opts...), root, scratch
}

func TestTranscribeAndSave(t *testing.T) {
	eng := &testutil.Engine{Result: &asr.Result{
		Segments: twoSegments,
		Info:     models.TranscriptionInfo{Language: "en", Duration: 3.25},
	}}
	svc, root, scratch := newService(t, eng, testutil.FakeFFmpeg(t))

	item, out, err := svc.TranscribeAndSave(context.Background(),
		pipeline.Upload{Filename: "talk.mp4", Data: []byte("media")},
		pipeline.SaveOptions{Style: models.StylePresentation, IncludeTimestamps: true})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.False(t, out.Empty)
	assert.Equal(t, "talk.mp4", item.Filename)
	assert.Equal(t, models.StylePresentation, item.Style)

	txt, err := os.ReadFile(filepath.Join(root, item.Paths.TXT))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", string(txt))

	require.Len(t, eng.Calls, 1)
	leftovers, _ := filepath.Glob(filepath.Join(scratch, "scriptorium-*"))
	assert.Empty(t, leftovers, "scratch files must be removed")
}

func TestTranscribeNoSpeech(t *testing.T) {
	eng := &testutil.Engine{Result: &asr.Result{Segments: []models.Segment{}}}
	svc, root, _ := newService(t, eng, testutil.FakeFFmpeg(t))

	item, out, err := svc.TranscribeAndSave(context.Background(),
		pipeline.Upload{Filename: "silence.wav", Data: []byte("x")}, pipeline.SaveOptions{})
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.True(t, out.Empty)
	assert.Equal(t, models.UnknownLanguage, out.Info.Language)

	_, err = os.Stat(filepath.Join(root, "index.json"))
	assert.True(t, os.IsNotExist(err), "nothing should be written for an empty result")
}

func TestTranscribeWithoutEngine(t *testing.T) {
	svc, _, _ := newService(t, nil, testutil.FakeFFmpeg(t))
	assert.False(t, svc.Ready())

	_, err := svc.Transcribe(context.Background(), pipeline.Upload{Filename: "a.mp3", Data: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
}

func TestTranscribeConversionFailure(t *testing.T) {
	eng := &testutil.Engine{Result: &asr.Result{Segments: twoSegments}}
	svc, _, scratch := newService(t, eng, testutil.FailingFFmpeg(t))

	_, err := svc.Transcribe(context.Background(), pipeline.Upload{Filename: "bad.bin", Data: []byte("x")})
	require.ErrorIs(t, err, apperr.ErrConversion)
	assert.Empty(t, eng.Calls, "engine must not run after a failed conversion")

	leftovers, _ := filepath.Glob(filepath.Join(scratch, "scriptorium-*"))
	assert.Empty(t, leftovers)
}

func TestTranscribeEngineError(t *testing.T) {
	boom := errors.New("model crashed")
	svc, _, scratch := newService(t, &testutil.Engine{Err: boom}, testutil.FakeFFmpeg(t))

	_, err := svc.Transcribe(context.Background(), pipeline.Upload{Filename: "a.mp3", Data: []byte("x")})
	assert.ErrorIs(t, err, boom)

	leftovers, _ := filepath.Glob(filepath.Join(scratch, "scriptorium-*"))
	assert.Empty(t, leftovers, "scratch files must be removed when the engine fails")
}

func TestPreview(t *testing.T) {
	arts, err := pipeline.Preview(&pipeline.Outcome{Segments: twoSegments}, pipeline.SaveOptions{Style: models.StyleMinimal})
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld", arts.Text)
	assert.Contains(t, arts.SRT, "1\n00:00:00,000 --> 00:00:01,500\nHello\n")
	assert.Equal(t, "PK", string(arts.DOCX[:2]))
}
