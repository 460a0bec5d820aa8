package web

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/ops"
)

// Handlers contains HTTP route handlers for the meeting API.
type Handlers struct {
	p       *ops.Pipeline
	version string
}

// AskRequest is the body of POST /meetings/{id}/chat.
type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// AskResponse adds the rendered answer to the chat result.
type AskResponse struct {
	*ops.AskOutput
	AnswerHTML template.HTML `json:"answer_html"`
}

// IndexRequest is the optional body of POST /meetings/{id}/embeddings.
type IndexRequest struct {
	Force bool `json:"force,omitempty"`
}

// SpeakerRequest is the body of PUT /meetings/{id}/speakers.
type SpeakerRequest struct {
	SpeakerID string  `json:"speaker_id"`
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// SegmentRequest is the body of PUT /meetings/{id}/segments/{segment}.
type SegmentRequest struct {
	SpeakerID string `json:"speaker_id"`
}

// SummaryResponse adds the rendered full summary to the summary result.
type SummaryResponse struct {
	*ops.SummarizeOutput
	FullSummaryHTML template.HTML `json:"full_summary_html"`
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// HandleList handles GET /meetings: list meetings, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(h.p.DB, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDetail handles GET /meetings/{id}: one meeting with its transcript.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	includeTranscript := r.URL.Query().Get("include_transcript") != "false"
	result, err := ops.Fetch(h.p.DB, ops.FetchInput{
		ID:                r.PathValue("id"),
		IncludeTranscript: &includeTranscript,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDelete handles DELETE /meetings/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.p, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleIndex handles POST /meetings/{id}/embeddings: build the meeting's vectors.
// force may come from the body or the query string.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.Index(r.Context(), h.p, ops.IndexInput{
		MeetingID: r.PathValue("id"),
		Force:     req.Force || parseBoolParam(r, "force"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAsk handles POST /meetings/{id}/chat: answer a question about the meeting.
func (h *Handlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.Ask(r.Context(), h.p, ops.AskInput{
		MeetingID: r.PathValue("id"),
		Query:     req.Query,
		TopK:      req.TopK,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, AskResponse{AskOutput: result, AnswerHTML: renderMarkdown(result.Answer)})
}

// HandleHistory handles GET /meetings/{id}/chat: the meeting's chat, oldest first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ChatHistory(h.p.DB, ops.HistoryInput{
		MeetingID: r.PathValue("id"),
		Limit:     parseIntParam(r, "limit", ops.DefaultHistoryLimit),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleSummary handles GET and POST /meetings/{id}/summary.
// GET returns the stored summary, generating it once; POST always regenerates.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Summarize(r.Context(), h.p, ops.SummarizeInput{
		MeetingID:  r.PathValue("id"),
		Regenerate: r.Method == http.MethodPost,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, SummaryResponse{
		SummarizeOutput: result,
		FullSummaryHTML: renderMarkdown(result.Summary.FullSummary),
	})
}

// HandleUpdateSpeaker handles PUT /meetings/{id}/speakers: rename or recolor a speaker.
func (h *Handlers) HandleUpdateSpeaker(w http.ResponseWriter, r *http.Request) {
	var req SpeakerRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.UpdateSpeaker(r.Context(), h.p, ops.UpdateSpeakerInput{
		MeetingID: r.PathValue("id"),
		SpeakerID: req.SpeakerID,
		Name:      req.Name,
		Color:     req.Color,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleReassignSegment handles PUT /meetings/{id}/segments/{segment}.
func (h *Handlers) HandleReassignSegment(w http.ResponseWriter, r *http.Request) {
	var req SegmentRequest
	if err := decodeBody(r, &req); err != nil {
		renderError(w, err)
		return
	}
	if req.SpeakerID == "" {
		renderError(w, errors.NewInvalidRequest("speaker_id is required"))
		return
	}

	result, err := ops.ReassignSegment(r.Context(), h.p, ops.ReassignSegmentInput{
		MeetingID: r.PathValue("id"),
		SegmentID: r.PathValue("segment"),
		SpeakerID: req.SpeakerID,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
