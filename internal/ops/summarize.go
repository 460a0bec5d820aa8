package ops

import (
	"context"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
	"github.com/hpungsan/murmur/internal/transcript"
)

// SummarizeInput contains parameters for the Summarize operation.
type SummarizeInput struct {
	MeetingID  string // required
	Regenerate bool   // ignore a stored summary
}

// SummarizeOutput is the stored summary plus whether it was produced by this call.
type SummarizeOutput struct {
	meeting.StoredSummary
	Generated bool `json:"generated"`
}

// Summarize returns the meeting's summary and action list, generating and
// storing them when none exists or Regenerate is set.
func Summarize(ctx context.Context, p *Pipeline, input SummarizeInput) (*SummarizeOutput, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}

	if !input.Regenerate {
		stored, err := db.GetSummary(p.DB, input.MeetingID)
		if err == nil {
			return &SummarizeOutput{StoredSummary: *stored}, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	t, err := db.GetTranscript(p.DB, input.MeetingID)
	if err != nil {
		return nil, err
	}
	if t.Empty() {
		return nil, errors.NewTranscriptUnavailable(input.MeetingID)
	}

	text := transcript.FullText(t)
	stored := &meeting.StoredSummary{
		MeetingID:  input.MeetingID,
		Summary:    p.Responder.Summarize(ctx, text),
		ActionList: p.Responder.ExtractActionItems(ctx, text),
	}
	if err := db.UpsertSummary(p.DB, stored); err != nil {
		return nil, err
	}

	p.Log.Infof("summarized meeting %s (%d key points, %d actions)",
		input.MeetingID, len(stored.Summary.KeyPoints), len(stored.ActionList))
	return &SummarizeOutput{StoredSummary: *stored, Generated: true}, nil
}
