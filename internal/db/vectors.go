package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/murmur/internal/vector"
)

// VectorIndex is a vector.Index over the vectors table.
// Queries load one meeting's vectors and rank them in process.
type VectorIndex struct {
	db *sql.DB
}

var _ vector.Index = (*VectorIndex)(nil)

// NewVectorIndex wraps db.
func NewVectorIndex(db *sql.DB) *VectorIndex {
	return &VectorIndex{db: db}
}

func requireMeeting(f vector.Filter) error {
	if f.MeetingID == "" {
		return fmt.Errorf("vector filter requires a meeting id")
	}
	return nil
}

// Upsert writes records in one transaction, overwriting matching IDs.
func (x *VectorIndex) Upsert(ctx context.Context, records []vector.Record) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, meeting_id, segment_index, speaker, text, timestamp_seconds, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			meeting_id = excluded.meeting_id,
			segment_index = excluded.segment_index,
			speaker = excluded.speaker,
			text = excluded.text,
			timestamp_seconds = excluded.timestamp_seconds,
			dims = excluded.dims,
			embedding = excluded.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID == "" || r.Metadata.MeetingID == "" {
			return fmt.Errorf("vector record needs id and meeting id")
		}
		md := r.Metadata
		_, err := stmt.ExecContext(ctx, r.ID, md.MeetingID, md.SegmentIndex, md.Speaker, md.Text,
			md.TimestampSeconds, len(r.Values), vector.Encode(r.Values))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query ranks the filtered meeting's vectors by cosine similarity.
// Stored vectors of another dimension fail the query with
// vector.ErrDimensionMismatch; the meeting needs a forced reindex.
func (x *VectorIndex) Query(ctx context.Context, values []float32, topK int, filter vector.Filter) ([]vector.Match, error) {
	if err := requireMeeting(filter); err != nil {
		return nil, err
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT id, meeting_id, segment_index, speaker, text, timestamp_seconds, dims, embedding
		FROM vectors
		WHERE meeting_id = ?
		ORDER BY segment_index
	`, filter.MeetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []vector.Candidate
	for rows.Next() {
		var (
			c    vector.Candidate
			dims int
			blob []byte
		)
		md := &c.Metadata
		if err := rows.Scan(&c.ID, &md.MeetingID, &md.SegmentIndex, &md.Speaker, &md.Text, &md.TimestampSeconds, &dims, &blob); err != nil {
			return nil, err
		}
		if dims != len(values) {
			return nil, fmt.Errorf("meeting %s is indexed with %d dimensions, query has %d: %w",
				filter.MeetingID, dims, len(values), vector.ErrDimensionMismatch)
		}
		if c.Values, err = vector.Decode(blob); err != nil {
			return nil, fmt.Errorf("vector %s: %w", c.ID, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vector.TopK(values, candidates, topK)
}

// DeleteByFilter removes every vector of the filtered meeting.
func (x *VectorIndex) DeleteByFilter(ctx context.Context, filter vector.Filter) error {
	if err := requireMeeting(filter); err != nil {
		return err
	}
	_, err := x.db.ExecContext(ctx, `DELETE FROM vectors WHERE meeting_id = ?`, filter.MeetingID)
	return err
}

// ExistsByFilter reports whether the filtered meeting has any vectors.
func (x *VectorIndex) ExistsByFilter(ctx context.Context, filter vector.Filter) (bool, error) {
	if err := requireMeeting(filter); err != nil {
		return false, err
	}
	var one int
	err := x.db.QueryRowContext(ctx, `SELECT 1 FROM vectors WHERE meeting_id = ? LIMIT 1`, filter.MeetingID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
