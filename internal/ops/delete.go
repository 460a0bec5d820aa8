package ops

import (
	"context"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/vector"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string // required
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes a meeting, its transcript, chat and summary, then its vectors.
// Vectors live outside the meeting's foreign keys, so they are removed explicitly.
func Delete(ctx context.Context, p *Pipeline, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	if err := db.DeleteMeeting(p.DB, input.ID); err != nil {
		return nil, err
	}
	if err := p.Index.DeleteByFilter(ctx, vector.Filter{MeetingID: input.ID}); err != nil {
		return nil, errors.NewVectorStoreFailure("delete", err)
	}

	return &DeleteOutput{Deleted: true, ID: input.ID}, nil
}
