package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptorium/internal/models"
)

func TestWriteEntries(t *testing.T) {
	var buf bytes.Buffer
	err := writeEntries(&buf, []models.IndexEntry{
		{ID: "0123456789ab", Filename: "talk.mp4", Language: "en", Duration: 12.34, Style: models.StyleMinimal, CreatedAt: 0},
		{ID: "ba9876543210", Filename: "memo.wav", Language: "unknown", Duration: 1, Style: models.StyleBulletList, CreatedAt: 1700000000.5},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "talk.mp4")
	assert.Contains(t, lines[1], "12.3s")
	assert.Contains(t, lines[1], "1970-01-01 00:00:00")
	assert.Contains(t, lines[2], "Bullet List")
	assert.Contains(t, lines[2], "2023-11-14 22:13:20")
}

func TestWriteEntriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "header only")
}
