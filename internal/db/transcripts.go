package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/murmur/internal/rag"
	"github.com/hpungsan/murmur/internal/transcript"
)

// Transcripts serves stored transcripts to the embedding pipeline.
type Transcripts struct {
	db *sql.DB
}

var _ rag.TranscriptSource = (*Transcripts)(nil)

// NewTranscripts wraps db as a rag.TranscriptSource.
func NewTranscripts(db *sql.DB) *Transcripts {
	return &Transcripts{db: db}
}

// Transcript returns NotFound for an unknown meeting and nil for one without segments.
func (s *Transcripts) Transcript(ctx context.Context, meetingID string) (*transcript.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GetTranscript(s.db, meetingID)
}
