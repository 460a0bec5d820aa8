package ops

import (
	"database/sql"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
)

// HistoryInput contains parameters for the ChatHistory operation.
type HistoryInput struct {
	MeetingID string // required
	Limit     int    // default: 50, max: 500
}

// HistoryOutput contains the result of the ChatHistory operation.
type HistoryOutput struct {
	MeetingID string                `json:"meeting_id"`
	Messages  []meeting.ChatMessage `json:"messages"`
}

// ChatHistory returns the most recent chat turns of a meeting, oldest first.
func ChatHistory(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	exists, err := db.MeetingExists(database, input.MeetingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFound("meeting", input.MeetingID)
	}

	msgs, err := db.ListChatMessages(database, input.MeetingID, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{MeetingID: input.MeetingID, Messages: msgs}, nil
}
