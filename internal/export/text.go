// Package export renders segment sequences as plaintext, SRT subtitles, and DOCX documents.
package export

import (
	"fmt"
	"strings"

	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/timecode"
)

// Plaintext joins the trimmed text of each segment with single newlines.
func Plaintext(segments []models.Segment) string {
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = strings.TrimSpace(seg.Text)
	}
	return strings.Join(lines, "\n")
}

// SRT renders segments as a numbered subtitle track. Numbering starts at 1 on every call.
func SRT(segments []models.Segment) string {
	blocks := make([]string, len(segments))
	for i, seg := range segments {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, timecode.Format(seg.Start), timecode.Format(seg.End), strings.TrimSpace(seg.Text))
	}
	return strings.Join(blocks, "\n")
}
