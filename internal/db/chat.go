package db

import (
	"database/sql"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
)

// InsertChatMessage appends a chat turn.
func InsertChatMessage(db *sql.DB, msg *meeting.ChatMessage) error {
	_, err := db.Exec(`
		INSERT INTO chat_messages (id, meeting_id, sender, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.MeetingID, string(msg.Sender), msg.Text, msg.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListChatMessages returns a meeting's chat, oldest first.
// When limit > 0 only the most recent limit messages are returned (still oldest first).
func ListChatMessages(db *sql.DB, meetingID string, limit int) ([]meeting.ChatMessage, error) {
	query := `
		SELECT id, meeting_id, sender, text, created_at FROM (
			SELECT id, meeting_id, sender, text, created_at FROM chat_messages
			WHERE meeting_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := db.Query(query, meetingID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	msgs := make([]meeting.ChatMessage, 0)
	for rows.Next() {
		var (
			m      meeting.ChatMessage
			sender string
		)
		if err := rows.Scan(&m.ID, &m.MeetingID, &sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Sender = meeting.Sender(sender)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return msgs, nil
}
