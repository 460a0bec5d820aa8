package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
)

// UpsertSummary stores or replaces the summary for a meeting.
// CreatedAt survives replacement; UpdatedAt is set to now.
func UpsertSummary(db *sql.DB, s *meeting.StoredSummary) error {
	summaryJSON, err := json.Marshal(s.Summary)
	if err != nil {
		return errors.NewInternal(err)
	}
	actions := s.ActionList
	if actions == nil {
		actions = []string{}
	}
	actionJSON, err := json.Marshal(actions)
	if err != nil {
		return errors.NewInternal(err)
	}

	now := time.Now().Unix()
	_, err = db.Exec(`
		INSERT INTO summaries (meeting_id, summary_json, action_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET
			summary_json = excluded.summary_json,
			action_json = excluded.action_json,
			updated_at = excluded.updated_at
	`, s.MeetingID, string(summaryJSON), string(actionJSON), now, now)
	if err != nil {
		return errors.NewInternal(err)
	}

	err = db.QueryRow(`SELECT created_at, updated_at FROM summaries WHERE meeting_id = ?`, s.MeetingID).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSummary returns the stored summary for a meeting, or NotFound.
func GetSummary(db *sql.DB, meetingID string) (*meeting.StoredSummary, error) {
	var (
		s           meeting.StoredSummary
		summaryJSON string
		actionJSON  string
	)
	err := db.QueryRow(`
		SELECT meeting_id, summary_json, action_json, created_at, updated_at
		FROM summaries WHERE meeting_id = ?
	`, meetingID).Scan(&s.MeetingID, &summaryJSON, &actionJSON, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("summary", meetingID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := json.Unmarshal([]byte(summaryJSON), &s.Summary); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := json.Unmarshal([]byte(actionJSON), &s.ActionList); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &s, nil
}
