// Package testutil provides shared test helpers: repositories, search databases,
// and stand-ins for the external converter and speech engine.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/scriptorium/internal/asr"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/repository"
	"github.com/starford/scriptorium/internal/search"
)

// fakeFFmpeg copies the -i input to the last argument and records its arguments.
const fakeFFmpeg = `#!/bin/sh
echo "$@" > "$(dirname "$0")/args.txt"
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    *) out="$1"; shift ;;
  esac
done
cp "$in" "$out"
`

const failingFFmpeg = `#!/bin/sh
echo "Invalid data found when processing input" >&2
exit 1
`

// FakeFFmpeg writes an executable stand-in for ffmpeg that copies its input
// to its output. It returns the binary path; the arguments of the last call
// are written to args.txt next to it.
func FakeFFmpeg(t *testing.T) string {
	t.Helper()
	return writeScript(t, "ffmpeg", fakeFFmpeg)
}

// FailingFFmpeg writes an ffmpeg stand-in that always exits non-zero.
func FailingFFmpeg(t *testing.T) string {
	t.Helper()
	return writeScript(t, "ffmpeg", failingFFmpeg)
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestRepo creates a repository rooted in a temporary directory.
func TestRepo(t *testing.T) (string, *repository.Repository) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := repository.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, repo
}

// TestDB creates a temporary SQLite search database that is automatically cleaned up.
func TestDB(t *testing.T) *search.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scriptorium-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := search.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SaveSample saves a two-segment transcript under filename.
func SaveSample(t *testing.T, repo *repository.Repository, filename string, segs ...models.Segment) *models.Item {
	t.Helper()
	if len(segs) == 0 {
		segs = []models.Segment{
			{Start: 0, End: 1.5, Text: "Hello"},
			{Start: 1.5, End: 3, Text: "World"},
		}
	}
	item, err := repo.Save(context.Background(), repository.SaveRequest{
		Filename:          filename,
		Info:              models.TranscriptionInfo{Language: "en", Duration: 3.25},
		Segments:          segs,
		Style:             models.StyleMinimal,
		IncludeTimestamps: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

// Engine is a speech engine stand-in returning a fixed result.
type Engine struct {
	Result *asr.Result
	Err    error
	Calls  []string
}

// Transcribe records the audio path and returns the configured result.
func (e *Engine) Transcribe(_ context.Context, audioPath string, _ asr.Options) (*asr.Result, error) {
	e.Calls = append(e.Calls, audioPath)
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Result, nil
}
