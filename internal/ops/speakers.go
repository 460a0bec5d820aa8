package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/rag"
)

// UpdateSpeakerInput contains parameters for the UpdateSpeaker operation.
type UpdateSpeakerInput struct {
	MeetingID string  // required
	SpeakerID string  // required
	Name      *string // nil leaves the name unchanged
	Color     *string // nil leaves the color unchanged
}

// ReassignSegmentInput contains parameters for the ReassignSegment operation.
type ReassignSegmentInput struct {
	MeetingID string // required
	SegmentID string // required
	SpeakerID string // required, must belong to the meeting
}

// EditOutput reports a transcript edit and the reindex that followed it.
// The edit is kept even when reindexing fails.
type EditOutput struct {
	MeetingID    string              `json:"meeting_id"`
	Reindexed    bool                `json:"reindexed"`
	Reindex      *rag.GenerateResult `json:"reindex,omitempty"`
	ReindexError string              `json:"reindex_error,omitempty"`
}

// UpdateSpeaker renames or recolors a speaker and rebuilds the meeting's vectors.
func UpdateSpeaker(ctx context.Context, p *Pipeline, input UpdateSpeakerInput) (*EditOutput, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}
	if input.SpeakerID == "" {
		return nil, errors.NewInvalidRequest("speaker_id is required")
	}
	if input.Name == nil && input.Color == nil {
		return nil, errors.NewInvalidRequest("name or color is required")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidRequest("name must not be empty")
		}
		input.Name = &name
	}

	if err := db.UpdateSpeaker(p.DB, input.MeetingID, input.SpeakerID, input.Name, input.Color); err != nil {
		return nil, err
	}
	return reindex(ctx, p, input.MeetingID), nil
}

// ReassignSegment attributes a segment to another speaker and rebuilds the meeting's vectors.
func ReassignSegment(ctx context.Context, p *Pipeline, input ReassignSegmentInput) (*EditOutput, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}
	if input.SegmentID == "" {
		return nil, errors.NewInvalidRequest("segment_id is required")
	}
	if input.SpeakerID == "" {
		return nil, errors.NewInvalidRequest("speaker_id is required")
	}

	if err := db.ReassignSegment(p.DB, input.MeetingID, input.SegmentID, input.SpeakerID); err != nil {
		return nil, err
	}
	return reindex(ctx, p, input.MeetingID), nil
}

// reindex forces regeneration so snippets carry the edited speaker attribution.
func reindex(ctx context.Context, p *Pipeline, meetingID string) *EditOutput {
	out := &EditOutput{MeetingID: meetingID}
	result, err := p.Store.Generate(ctx, meetingID, true)
	if err != nil {
		p.Log.Warnf("reindex after edit failed for meeting %s: %v", meetingID, err)
		out.ReindexError = err.Error()
		return out
	}
	out.Reindexed = true
	out.Reindex = result
	return out
}
