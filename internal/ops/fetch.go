package ops

import (
	"database/sql"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
	"github.com/hpungsan/murmur/internal/transcript"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID                string // required
	IncludeTranscript *bool  // default: true (nil means default)
}

// FetchOutput is a meeting overview plus, optionally, its transcript.
type FetchOutput struct {
	meeting.Overview
	Transcript *transcript.Transcript `json:"transcript,omitempty"`
}

// Fetch retrieves a meeting by ID.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	m, err := db.GetMeeting(database, input.ID)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Overview: m.ToOverview()}
	if input.IncludeTranscript == nil || *input.IncludeTranscript {
		output.Transcript = m.Transcript
	}
	return output, nil
}
