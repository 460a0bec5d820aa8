package ops

import (
	"context"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/rag"
)

// IndexInput contains parameters for the Index operation.
type IndexInput struct {
	MeetingID string // required
	Force     bool   // delete and rebuild existing vectors
}

// Index builds the meeting's vectors. Without Force an indexed meeting is left alone.
func Index(ctx context.Context, p *Pipeline, input IndexInput) (*rag.GenerateResult, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}
	return p.Store.Generate(ctx, input.MeetingID, input.Force)
}
