package asr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/apperr"
)

type stubEngine struct{ ct string }

func (s *stubEngine) Transcribe(context.Context, string, Options) (*Result, error) {
	return &Result{}, nil
}

func TestComputeTypes(t *testing.T) {
	tests := []struct {
		primary string
		want    []string
	}{
		{"float16", []string{"float16", "int8", "int8_float32", "float32"}},
		{"int8", []string{"int8", "int8_float32", "float32"}},
		{"float32", []string{"float32", "int8", "int8_float32"}},
		{"", []string{"int8", "int8_float32", "float32"}},
	}
	for _, tt := range tests {
		t.Run(tt.primary, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTypes(tt.primary))
		})
	}
}

func TestLoadFallsBack(t *testing.T) {
	var tried []string
	open := func(_ context.Context, ct string) (Engine, error) {
		tried = append(tried, ct)
		if ct != "int8_float32" {
			return nil, errors.New("unsupported " + ct)
		}
		return &stubEngine{ct: ct}, nil
	}

	eng, ct, err := Load(context.Background(), "float16", open)
	require.NoError(t, err)
	assert.Equal(t, "int8_float32", ct)
	assert.Equal(t, "int8_float32", eng.(*stubEngine).ct)
	assert.Equal(t, []string{"float16", "int8", "int8_float32"}, tried)
}

func TestLoadPrimaryFirst(t *testing.T) {
	calls := 0
	open := func(_ context.Context, ct string) (Engine, error) {
		calls++
		return &stubEngine{ct: ct}, nil
	}
	_, ct, err := Load(context.Background(), "float16", open)
	require.NoError(t, err)
	assert.Equal(t, "float16", ct)
	assert.Equal(t, 1, calls)
}

func TestLoadAllFail(t *testing.T) {
	open := func(_ context.Context, ct string) (Engine, error) {
		return nil, errors.New("boom " + ct)
	}
	_, _, err := Load(context.Background(), "float16", open)
	require.ErrorIs(t, err, apperr.ErrEngineUnavailable)
	for _, ct := range []string{"float16", "int8", "int8_float32", "float32"} {
		assert.Contains(t, err.Error(), "boom "+ct)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, "int8", func(context.Context, string) (Engine, error) {
		t.Fatal("opener must not run after cancellation")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// fakePython answers the helper protocol without Python installed.
const fakePython = `#!/bin/sh
for a in "$@"; do
  if [ "$a" = "--probe" ]; then echo '{"ok": true}'; exit 0; fi
done
echo "$@" > "$(dirname "$0")/args.txt"
echo '{"segments": [{"start": 0, "end": 1.5, "text": " Hello"}], "info": {"language": "en", "duration": 1.5}}'
`

const brokenPython = `#!/bin/sh
echo "Traceback (most recent call last):" >&2
echo "ValueError: Requested float16 compute type" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func TestFasterWhisperTranscribe(t *testing.T) {
	python := writeScript(t, fakePython)
	open := FasterWhisperOpener(FasterWhisperConfig{Python: python, Model: "small.en"})

	eng, ct, err := Load(context.Background(), "int8", open)
	require.NoError(t, err)
	assert.Equal(t, "int8", ct)

	res, err := eng.Transcribe(context.Background(), "/tmp/audio.wav", Options{BeamSize: 3, VADFilter: true, Language: "en"})
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, " Hello", res.Segments[0].Text)
	assert.Equal(t, "en", res.Info.Language)
	assert.InDelta(t, 1.5, res.Info.Duration, 1e-9)

	args, err := os.ReadFile(filepath.Join(filepath.Dir(python), "args.txt"))
	require.NoError(t, err)
	for _, want := range []string{"--model small.en", "--compute-type int8", "--audio /tmp/audio.wav", "--beam-size 3", "--vad-filter", "--language en"} {
		assert.Contains(t, string(args), want)
	}
}

func TestFasterWhisperProbeFailure(t *testing.T) {
	python := writeScript(t, brokenPython)
	open := FasterWhisperOpener(FasterWhisperConfig{Python: python, Model: "small.en"})

	_, err := open(context.Background(), "float16")
	require.Error(t, err)
	assert.True(t, strings.HasSuffix(err.Error(), "ValueError: Requested float16 compute type"), err.Error())
}

func TestFasterWhisperMissingInterpreter(t *testing.T) {
	open := FasterWhisperOpener(FasterWhisperConfig{Python: filepath.Join(t.TempDir(), "nope"), Model: "small"})
	_, _, err := Load(context.Background(), "int8", open)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.ErrorIs(t, err, apperr.ErrEngineUnavailable)
}
