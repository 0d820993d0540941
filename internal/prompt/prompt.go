// Package prompt assembles saved transcripts into a text prompt for a
// downstream generator.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/scriptorium/internal/models"
)

// Marker is replaced by the combined transcripts.
const Marker = "{combined_transcripts}"

// DefaultTemplate asks for a presentation outline built from the transcripts.
const DefaultTemplate = `You are an expert presentation creator.

Create a presentation outline for a presenter using the following transcript(s).
- Audience: general
- Tone: clear, engaging, concise
- Output: Title, 5-8 key sections with bullet points, and 3 actionable takeaways
- Include data points, quotes, and time markers when useful.

TRANSCRIPTS:
{combined_transcripts}

Guidelines:
- Consolidate duplicate points.
- Keep bullets short and scannable.
- Suggest 3 slide visuals or diagrams.
`

// HasMarker reports whether template contains the substitution marker.
// A template without it is returned by Build unchanged.
func HasMarker(template string) bool {
	return strings.Contains(template, Marker)
}

// Reader is the read side of the transcript repository.
type Reader interface {
	ReadMeta(ctx context.Context, id string) (*models.Item, error)
	ReadText(ctx context.Context, id string) (string, error)
}

// Builder renders prompts from saved transcripts.
type Builder struct {
	repo Reader
}

// NewBuilder returns a Builder reading from repo.
func NewBuilder(repo Reader) *Builder {
	return &Builder{repo: repo}
}

// Build substitutes every occurrence of Marker in template with one block per
// id, in the given order. Duplicate ids produce duplicate blocks. Any id that
// cannot be read aborts the build.
func (b *Builder) Build(ctx context.Context, ids []string, template string) (string, error) {
	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		item, err := b.repo.ReadMeta(ctx, id)
		if err != nil {
			return "", fmt.Errorf("prompt: %w", err)
		}
		text, err := b.repo.ReadText(ctx, id)
		if err != nil {
			return "", fmt.Errorf("prompt: %w", err)
		}
		blocks = append(blocks, Header(item)+strings.TrimSpace(text))
	}
	return strings.ReplaceAll(template, Marker, strings.Join(blocks, "\n\n")), nil
}

// Header returns the line that introduces a transcript block.
func Header(item *models.Item) string {
	return fmt.Sprintf("\n=== %s (id: %s, lang: %s, duration: %.1fs) ===\n",
		item.Filename, item.ID, item.Language, item.Duration)
}
