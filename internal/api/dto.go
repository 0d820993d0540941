package api

import (
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/search"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

// TranscriptListResponse wraps the repository index.
type TranscriptListResponse struct {
	Items []models.IndexEntry `json:"items" validate:"required"`
	Total int                 `json:"total" example:"42" validate:"required"`
}

// TranscriptDetail is the full transcript response type (aliased from the domain layer).
type TranscriptDetail = transcriptservice.TranscriptDetail

// EmptyResponse is returned when an upload contained no speech.
type EmptyResponse struct {
	Empty   bool   `json:"empty" example:"true"`
	Message string `json:"message" example:"No speech detected."`
}

// PreviewResponse is returned for uploads transcribed with save=false.
type PreviewResponse struct {
	Segments []models.Segment         `json:"segments"`
	Info     models.TranscriptionInfo `json:"info"`
	Text     string                   `json:"text"`
	SRT      string                   `json:"srt"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results" validate:"required"`
}

// TemplateBody is the prompt template request and response body.
type TemplateBody struct {
	Template string `json:"template" validate:"required"`
}

// BuildPromptRequest selects transcripts and optionally overrides the session template.
type BuildPromptRequest struct {
	IDs      []string `json:"ids" validate:"required"`
	Template *string  `json:"template,omitempty"`
}

// PromptResponse is the rendered prompt.
type PromptResponse = transcriptservice.PromptResult
