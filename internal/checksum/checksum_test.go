package checksum

import (
	"testing"

	"github.com/starford/scriptorium/internal/models"
)

func TestSum(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestEntry(t *testing.T) {
	e := models.IndexEntry{ID: "0123456789ab", Filename: "a.mp3", Language: "en", Duration: 3.25, Style: models.StyleMinimal, CreatedAt: 1}
	a := Entry(e, "hello")
	if a != Entry(e, "hello") {
		t.Error("Entry is not deterministic")
	}
	if a == Entry(e, "hello!") {
		t.Error("body change not reflected")
	}
	e2 := e
	e2.Filename = "a.mp"
	if Entry(e2, "3hello") == Entry(e, "hello") {
		t.Error("field boundaries must be preserved")
	}
}
