package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/media"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

// maxUploadBytes bounds a single media upload.
const maxUploadBytes = 1 << 30

// Handler holds API route handlers.
type Handler struct {
	svc *transcriptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *transcriptservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListTranscripts handles GET /api/transcripts.
//
//	@Summary		List saved transcripts in insertion order
//	@Tags			transcripts
//	@Produce		json
//	@Success		200	{object}	TranscriptListResponse
//	@Router			/transcripts [get]
func (h *Handler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list transcripts", err)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptListResponse{Items: items, Total: len(items)})
}

// GetTranscript handles GET /api/transcripts/{id}.
//
//	@Summary		Get a transcript's metadata and text
//	@Tags			transcripts
//	@Produce		json
//	@Param			id	path		string	true	"Transcript id"
//	@Success		200	{object}	TranscriptDetail
//	@Failure		404	{object}	errResponse
//	@Router			/transcripts/{id} [get]
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get transcript", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

var artifactTypes = map[models.ArtifactKind]struct {
	contentType string
	suffix      string
}{
	models.ArtifactTXT:  {"text/plain; charset=utf-8", "_transcript.txt"},
	models.ArtifactSRT:  {"application/x-subrip; charset=utf-8", "_subtitles.srt"},
	models.ArtifactDOCX: {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "_transcript.docx"},
}

// GetArtifact handles GET /api/transcripts/{id}/{kind}.
//
//	@Summary		Download one exported file
//	@Tags			transcripts
//	@Produce		octet-stream
//	@Param			id		path	string	true	"Transcript id"
//	@Param			kind	path	string	true	"Artifact kind"	Enums(txt, srt, docx)
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Router			/transcripts/{id}/{kind} [get]
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := models.ArtifactKind(chi.URLParam(r, "kind"))
	t, ok := artifactTypes[kind]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown artifact kind"))
		return
	}
	data, err := h.svc.Artifact(r.Context(), id, kind)
	if err != nil {
		writeError(w, "get artifact", err)
		return
	}
	w.Header().Set("Content-Type", t.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, id, t.suffix))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// CreateTranscript handles POST /api/transcripts (multipart/form-data).
//
//	@Summary		Transcribe an uploaded media file
//	@Tags			transcripts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file				formData	file	true	"Audio or video file"
//	@Param			style				formData	string	false	"Document style"	Enums(Minimal, Presentation, Bullet List)
//	@Param			include_timestamps	formData	bool	false	"Prefix document paragraphs with time ranges"
//	@Param			save				formData	bool	false	"Save to the repository (default true)"
//	@Success		201	{object}	models.Item
//	@Success		200	{object}	EmptyResponse
//	@Failure		400	{object}	errResponse
//	@Failure		415	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Router			/transcripts [post]
func (h *Handler) CreateTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if !media.Supported(header.Filename) {
		writeJSON(w, http.StatusUnsupportedMediaType,
			errorBody("unsupported file type; expected one of "+strings.Join(media.SupportedExtensions, ", ")))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	opts := pipeline.SaveOptions{
		Style:             models.StyleMinimal,
		IncludeTimestamps: formBool(r, "include_timestamps", true),
	}
	if s := r.FormValue("style"); s != "" {
		opts.Style = models.Style(s)
	}
	up := pipeline.Upload{Filename: header.Filename, Data: data}

	if !formBool(r, "save", true) {
		out, err := h.svc.Transcribe(r.Context(), up)
		if err != nil {
			writeError(w, "transcribe", err)
			return
		}
		if out.Empty {
			writeJSON(w, http.StatusOK, EmptyResponse{Empty: true, Message: "No speech detected."})
			return
		}
		arts, err := pipeline.Preview(out, opts)
		if err != nil {
			writeError(w, "preview", err)
			return
		}
		writeJSON(w, http.StatusOK, PreviewResponse{Segments: out.Segments, Info: out.Info, Text: arts.Text, SRT: arts.SRT})
		return
	}

	item, out, err := h.svc.Upload(r.Context(), up, opts)
	if err != nil {
		writeError(w, "transcribe", err)
		return
	}
	if out.Empty {
		writeJSON(w, http.StatusOK, EmptyResponse{Empty: true, Message: "No speech detected."})
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// formBool parses a boolean form field, returning def when it is absent or malformed.
func formBool(r *http.Request, key string, def bool) bool {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	if v == "on" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across transcripts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetTemplate handles GET /api/prompt/template.
//
//	@Summary		Get the session prompt template
//	@Tags			prompt
//	@Produce		json
//	@Success		200	{object}	TemplateBody
//	@Router			/prompt/template [get]
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TemplateBody{Template: sessionFrom(r.Context()).Template()})
}

// PutTemplate handles PUT /api/prompt/template.
//
//	@Summary		Replace the session prompt template
//	@Tags			prompt
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TemplateBody	true	"New template"
//	@Success		200		{object}	TemplateBody
//	@Failure		400		{object}	errResponse
//	@Router			/prompt/template [put]
func (h *Handler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TemplateBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess := sessionFrom(r.Context())
	sess.SetTemplate(req.Template)
	writeJSON(w, http.StatusOK, TemplateBody{Template: sess.Template()})
}

// ResetTemplate handles DELETE /api/prompt/template.
//
//	@Summary		Restore the default prompt template
//	@Tags			prompt
//	@Produce		json
//	@Success		200	{object}	TemplateBody
//	@Router			/prompt/template [delete]
func (h *Handler) ResetTemplate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Reset()
	writeJSON(w, http.StatusOK, TemplateBody{Template: sess.Template()})
}

// LastPrompt handles GET /api/prompt/last.
//
//	@Summary		Get the most recently built prompt of the session
//	@Tags			prompt
//	@Produce		json
//	@Success		200	{object}	PromptResponse
//	@Router			/prompt/last [get]
func (h *Handler) LastPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PromptResponse{Prompt: sessionFrom(r.Context()).LastPrompt()})
}

// BuildPrompt handles POST /api/prompt.
//
//	@Summary		Assemble a prompt from saved transcripts
//	@Tags			prompt
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BuildPromptRequest	true	"Transcript ids and optional template"
//	@Success		200		{object}	PromptResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/prompt [post]
func (h *Handler) BuildPrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BuildPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("select at least one saved transcript"))
		return
	}
	res, err := h.svc.BuildPrompt(r.Context(), sessionFrom(r.Context()), req.IDs, req.Template)
	if err != nil {
		writeError(w, "build prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
