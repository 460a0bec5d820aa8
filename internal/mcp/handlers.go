package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	p *ops.Pipeline
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(p *ops.Pipeline) *Handlers {
	return &Handlers{p: p}
}

// Request types for each tool

// ListRequest represents the arguments for meeting_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for meeting_fetch.
type FetchRequest struct {
	ID                string `json:"id"`
	IncludeTranscript *bool  `json:"include_transcript,omitempty"`
}

// IndexRequest represents the arguments for meeting_index.
type IndexRequest struct {
	MeetingID string `json:"meeting_id"`
	Force     bool   `json:"force,omitempty"`
}

// AskRequest represents the arguments for meeting_ask.
type AskRequest struct {
	MeetingID string `json:"meeting_id"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k,omitempty"`
}

// SummarizeRequest represents the arguments for meeting_summarize.
type SummarizeRequest struct {
	MeetingID  string `json:"meeting_id"`
	Regenerate bool   `json:"regenerate,omitempty"`
}

// HistoryRequest represents the arguments for meeting_history.
type HistoryRequest struct {
	MeetingID string `json:"meeting_id"`
	Limit     int    `json:"limit,omitempty"`
}

// UpdateSpeakerRequest represents the arguments for meeting_update_speaker.
type UpdateSpeakerRequest struct {
	MeetingID string  `json:"meeting_id"`
	SpeakerID string  `json:"speaker_id"`
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// ReassignSegmentRequest represents the arguments for meeting_reassign_segment.
type ReassignSegmentRequest struct {
	MeetingID string `json:"meeting_id"`
	SegmentID string `json:"segment_id"`
	SpeakerID string `json:"speaker_id"`
}

// HandleList handles the meeting_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.p.DB, ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the meeting_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.p.DB, ops.FetchInput{
		ID:                input.ID,
		IncludeTranscript: input.IncludeTranscript,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleIndex handles the meeting_index tool call.
func (h *Handlers) HandleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IndexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Index(ctx, h.p, ops.IndexInput{
		MeetingID: input.MeetingID,
		Force:     input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAsk handles the meeting_ask tool call.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Ask(ctx, h.p, ops.AskInput{
		MeetingID: input.MeetingID,
		Query:     input.Query,
		TopK:      input.TopK,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummarize handles the meeting_summarize tool call.
func (h *Handlers) HandleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummarizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Summarize(ctx, h.p, ops.SummarizeInput{
		MeetingID:  input.MeetingID,
		Regenerate: input.Regenerate,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the meeting_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ChatHistory(h.p.DB, ops.HistoryInput{
		MeetingID: input.MeetingID,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdateSpeaker handles the meeting_update_speaker tool call.
func (h *Handlers) HandleUpdateSpeaker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateSpeakerRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateSpeaker(ctx, h.p, ops.UpdateSpeakerInput{
		MeetingID: input.MeetingID,
		SpeakerID: input.SpeakerID,
		Name:      input.Name,
		Color:     input.Color,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReassignSegment handles the meeting_reassign_segment tool call.
func (h *Handlers) HandleReassignSegment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReassignSegmentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ReassignSegment(ctx, h.p, ops.ReassignSegmentInput{
		MeetingID: input.MeetingID,
		SegmentID: input.SegmentID,
		SpeakerID: input.SpeakerID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult creates an MCP error result from an error.
// A MurmurError wrapped by callers keeps the wrapper text in its message.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := errors.As(err); ok {
		msg := mErr.Message
		if err != error(mErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": msg,
			"status":  mErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if mErr.Code != errors.ErrInternal && mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
