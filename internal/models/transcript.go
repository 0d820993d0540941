// Package models defines the domain types for Scriptorium.
package models

// UnknownLanguage is recorded when the engine does not report a language.
const UnknownLanguage = "unknown"

// Segment is one time-bounded unit of recognized speech. Offsets are seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionInfo is the summary metadata reported alongside segments.
type TranscriptionInfo struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// LanguageOrUnknown returns Language, or UnknownLanguage when it is empty.
func (i TranscriptionInfo) LanguageOrUnknown() string {
	if i.Language == "" {
		return UnknownLanguage
	}
	return i.Language
}

// Style selects how segment paragraphs are shaped in the document export.
type Style string

// Recognised styles. Any other value renders as plain text.
const (
	StyleMinimal      Style = "Minimal"
	StylePresentation Style = "Presentation"
	StyleBulletList   Style = "Bullet List"
)

// Styles lists the recognised styles in display order.
var Styles = []Style{StyleMinimal, StylePresentation, StyleBulletList}

// Known reports whether s is one of the recognised styles.
func (s Style) Known() bool {
	switch s {
	case StyleMinimal, StylePresentation, StyleBulletList:
		return true
	default:
		return false
	}
}

// ArtifactPaths locates the exported files of an item, relative to the repository root.
type ArtifactPaths struct {
	TXT  string `json:"txt"`
	SRT  string `json:"srt"`
	DOCX string `json:"docx"`
}

// Item is the metadata record of a saved transcript (meta.json).
type Item struct {
	ID                string        `json:"id"`
	Filename          string        `json:"filename"`
	CreatedAt         float64       `json:"created_at"`
	Language          string        `json:"language"`
	Duration          float64       `json:"duration"`
	Style             Style         `json:"style"`
	IncludeTimestamps bool          `json:"include_timestamps"`
	Paths             ArtifactPaths `json:"paths"`
}

// Entry projects the item onto its index summary.
func (it *Item) Entry() IndexEntry {
	return IndexEntry{
		ID:        it.ID,
		Filename:  it.Filename,
		CreatedAt: it.CreatedAt,
		Language:  it.Language,
		Duration:  it.Duration,
		Style:     it.Style,
	}
}

// IndexEntry is the summary of an item stored in index.json.
type IndexEntry struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	CreatedAt float64 `json:"created_at"`
	Language  string  `json:"language"`
	Duration  float64 `json:"duration"`
	Style     Style   `json:"style"`
}

// Index is the on-disk registry of all saved items.
type Index struct {
	Items []IndexEntry `json:"items"`
}

// ArtifactKind names one of the exported files of an item.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactTXT  ArtifactKind = "txt"
	ArtifactSRT  ArtifactKind = "srt"
	ArtifactDOCX ArtifactKind = "docx"
)

// Path returns the relative path of the artifact of the given kind, or "" if kind is unknown.
func (p ArtifactPaths) Path(kind ArtifactKind) string {
	switch kind {
	case ArtifactTXT:
		return p.TXT
	case ArtifactSRT:
		return p.SRT
	case ArtifactDOCX:
		return p.DOCX
	default:
		return ""
	}
}
