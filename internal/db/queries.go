package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
	"github.com/hpungsan/murmur/internal/transcript"
)

// InsertMeeting stores a meeting together with its transcript in one transaction.
// Speaker and segment IDs must already be assigned.
func InsertMeeting(db *sql.DB, m *meeting.Meeting) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO meetings (
			id, title, meeting_date, duration_minutes, status, audio_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Title, toNullString(m.Date), m.DurationMinutes, string(m.Status),
		toNullString(m.AudioURL), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	if m.Transcript != nil {
		if err := insertTranscript(tx, m.ID, m.Transcript); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertTranscript(tx *sql.Tx, meetingID string, t *transcript.Transcript) error {
	for i, sp := range t.Speakers {
		_, err := tx.Exec(`
			INSERT INTO speakers (meeting_id, id, position, name, color)
			VALUES (?, ?, ?, ?, ?)
		`, meetingID, sp.ID, i, sp.Name, toNullString(sp.Color))
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	for i, seg := range t.Segments {
		_, err := tx.Exec(`
			INSERT INTO segments (meeting_id, position, id, speaker_id, text, start_time, end_time)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, meetingID, i, seg.ID, seg.SpeakerID, seg.Text, seg.StartTime, seg.EndTime)
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// GetMeeting retrieves a meeting and its transcript by ID.
func GetMeeting(db *sql.DB, id string) (*meeting.Meeting, error) {
	row := db.QueryRow(`
		SELECT id, title, meeting_date, duration_minutes, status, audio_url, created_at, updated_at
		FROM meetings
		WHERE id = ?
	`, id)

	var (
		m        meeting.Meeting
		date     sql.NullString
		audioURL sql.NullString
		status   string
	)
	err := row.Scan(&m.ID, &m.Title, &date, &m.DurationMinutes, &status, &audioURL, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("meeting", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	m.Date = date.String
	m.AudioURL = audioURL.String
	m.Status = meeting.Status(status)

	t, err := loadTranscript(db, id)
	if err != nil {
		return nil, err
	}
	m.Transcript = t

	return &m, nil
}

// GetTranscript returns the transcript for a meeting.
// Returns NotFound if the meeting doesn't exist; a meeting without segments yields a nil transcript.
func GetTranscript(db *sql.DB, meetingID string) (*transcript.Transcript, error) {
	exists, err := MeetingExists(db, meetingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFound("meeting", meetingID)
	}
	return loadTranscript(db, meetingID)
}

// MeetingExists reports whether a meeting row exists.
func MeetingExists(db *sql.DB, id string) (bool, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM meetings WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

func loadTranscript(db *sql.DB, meetingID string) (*transcript.Transcript, error) {
	t := &transcript.Transcript{}

	rows, err := db.Query(`
		SELECT id, name, color FROM speakers
		WHERE meeting_id = ?
		ORDER BY position
	`, meetingID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for rows.Next() {
		var (
			sp    transcript.Speaker
			color sql.NullString
		)
		if err := rows.Scan(&sp.ID, &sp.Name, &color); err != nil {
			rows.Close()
			return nil, errors.NewInternal(err)
		}
		sp.Color = color.String
		t.Speakers = append(t.Speakers, sp)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.NewInternal(err)
	}
	rows.Close()

	rows, err = db.Query(`
		SELECT id, speaker_id, text, start_time, end_time FROM segments
		WHERE meeting_id = ?
		ORDER BY position
	`, meetingID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var seg transcript.Segment
		if err := rows.Scan(&seg.ID, &seg.SpeakerID, &seg.Text, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, errors.NewInternal(err)
		}
		t.Segments = append(t.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if len(t.Speakers) == 0 && len(t.Segments) == 0 {
		return nil, nil
	}
	return t, nil
}

// ListMeetings returns meeting overviews, newest first, plus the total count.
func ListMeetings(db *sql.DB, limit, offset int) ([]meeting.Overview, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM meetings`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT m.id, m.title, m.meeting_date, m.duration_minutes, m.status, m.audio_url,
			m.created_at, m.updated_at,
			(SELECT COUNT(*) FROM speakers s WHERE s.meeting_id = m.id),
			(SELECT COUNT(*) FROM segments g WHERE g.meeting_id = m.id)
		FROM meetings m
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]meeting.Overview, 0, limit)
	for rows.Next() {
		var (
			o        meeting.Overview
			date     sql.NullString
			audioURL sql.NullString
			status   string
		)
		err := rows.Scan(&o.ID, &o.Title, &date, &o.DurationMinutes, &status, &audioURL,
			&o.CreatedAt, &o.UpdatedAt, &o.Participants, &o.SegmentCount)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		o.Date = date.String
		o.AudioURL = audioURL.String
		o.Status = meeting.Status(status)
		o.TranscriptionAvailable = o.SegmentCount > 0
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// DeleteMeeting removes a meeting; speakers, segments, chat and summary cascade.
// Vectors are owned by the index and are removed separately.
func DeleteMeeting(db *sql.DB, id string) error {
	result, err := db.Exec(`DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("meeting", id)
	}
	return nil
}

// UpdateSpeaker renames and/or recolors a speaker. Nil fields are left alone.
func UpdateSpeaker(db *sql.DB, meetingID, speakerID string, name, color *string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE speakers
		SET name = COALESCE(?, name), color = COALESCE(?, color)
		WHERE meeting_id = ? AND id = ?
	`, ptrToNull(name), ptrToNull(color), meetingID, speakerID)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("speaker", speakerID)
	}

	if err := touchMeeting(tx, meetingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ReassignSegment attributes a segment to a different speaker of the same meeting.
func ReassignSegment(db *sql.DB, meetingID, segmentID, speakerID string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM speakers WHERE meeting_id = ? AND id = ?`, meetingID, speakerID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("speaker", speakerID)
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	result, err := tx.Exec(`
		UPDATE segments SET speaker_id = ?
		WHERE meeting_id = ? AND id = ?
	`, speakerID, meetingID, segmentID)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("segment", segmentID)
	}

	if err := touchMeeting(tx, meetingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func touchMeeting(tx *sql.Tx, meetingID string) error {
	if _, err := tx.Exec(`UPDATE meetings SET updated_at = ? WHERE id = ?`, time.Now().Unix(), meetingID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ptrToNull converts a *string to sql.NullString.
func ptrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
