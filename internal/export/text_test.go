package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/scriptorium/internal/models"
)

var twoSegments = []models.Segment{
	{Start: 0, End: 1.5, Text: "Hello"},
	{Start: 1.5, End: 3, Text: "World"},
}

func TestSRT(t *testing.T) {
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n00:00:01,500 --> 00:00:03,000\nWorld\n"
	assert.Equal(t, want, SRT(twoSegments))
}

func TestSRT_NumberingRestartsPerCall(t *testing.T) {
	first := SRT(twoSegments)
	second := SRT(twoSegments)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(second, "1\n"))
}

func TestSRT_TrimsText(t *testing.T) {
	got := SRT([]models.Segment{{Start: 0, End: 1, Text: "  padded \n"}})
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\npadded\n", got)
}

func TestPlaintext(t *testing.T) {
	segs := []models.Segment{
		{Start: 0, End: 1, Text: " one "},
		{Start: 1, End: 2, Text: "two\n"},
		{Start: 2, End: 3, Text: "three"},
	}
	got := Plaintext(segs)
	assert.Equal(t, "one\ntwo\nthree", got)
	assert.Len(t, strings.Split(got, "\n"), len(segs))
}

func TestPlaintext_Empty(t *testing.T) {
	assert.Equal(t, "", Plaintext(nil))
}
