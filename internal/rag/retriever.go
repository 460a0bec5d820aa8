package rag

import (
	"context"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/vector"
)

// DefaultTopK is the number of snippets returned when the caller doesn't say.
const DefaultTopK = 5

// Snippet is a retrieved transcript segment with its similarity score.
type Snippet struct {
	ID               string  `json:"id"`
	MeetingID        string  `json:"meeting_id"`
	Score            float32 `json:"score"`
	Text             string  `json:"text"`
	Speaker          string  `json:"speaker"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	SegmentIndex     int     `json:"segment_index"`
}

// Retriever finds the segments of one meeting most similar to a query.
// The embedder must be the one the EmbeddingStore used.
type Retriever struct {
	embedder Embedder
	index    vector.Index
	log      *logging.Logger
}

// NewRetriever wires a Retriever.
func NewRetriever(embedder Embedder, index vector.Index, log *logging.Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, log: log}
}

// Query returns up to topK snippets from meetingID, best first.
// No matches is an empty result, not an error.
func (r *Retriever) Query(ctx context.Context, meetingID, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	values, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingBatchFailure(1, 1, err)
	}

	matches, err := r.index.Query(ctx, values, topK, vector.Filter{MeetingID: meetingID})
	if err != nil {
		return nil, errors.NewVectorStoreFailure("query", err)
	}

	snippets := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.MeetingID != meetingID {
			r.log.Warnf("dropping match %s from meeting %s while querying %s", m.ID, m.Metadata.MeetingID, meetingID)
			continue
		}
		snippets = append(snippets, Snippet{
			ID:               m.ID,
			MeetingID:        m.Metadata.MeetingID,
			Score:            m.Score,
			Text:             m.Metadata.Text,
			Speaker:          m.Metadata.Speaker,
			TimestampSeconds: m.Metadata.TimestampSeconds,
			SegmentIndex:     m.Metadata.SegmentIndex,
		})
		if len(snippets) == topK {
			break
		}
	}

	if len(snippets) == 0 {
		r.log.Infof("no relevant context found in meeting %s", meetingID)
	}
	return snippets, nil
}
