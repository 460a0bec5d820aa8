package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/murmur/internal/capture"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
)

// SaveRecordingInput contains parameters for the SaveRecording operation.
type SaveRecordingInput struct {
	Path       string        // required: .wav, must not exist
	Blob       *capture.Blob // required
	DurationMs int64         // recorder's wall-clock duration

	// Title registers the recording as a meeting awaiting transcription when non-empty.
	Title string
}

// SaveRecordingOutput contains the result of the SaveRecording operation.
type SaveRecordingOutput struct {
	Path            string  `json:"path"`
	MIMEType        string  `json:"mime_type"`
	Bytes           int     `json:"bytes"`
	DurationMs      int64   `json:"duration_ms"`
	DurationMinutes float64 `json:"duration_minutes"`
	Duration        string  `json:"duration"`
	MeetingID       string  `json:"meeting_id,omitempty"`
}

// DefaultRecordingPath names a recording file after its title and start time.
func DefaultRecordingPath(dir, title string, startedAt time.Time) string {
	name := SanitizeForFilename(title) + "-" + startedAt.Format("20060102-150405") + ".wav"
	return filepath.Join(dir, name)
}

// SaveRecording writes a finalized recording to a new file. With a title it
// also stores an in-progress meeting pointing at the file.
func SaveRecording(database *sql.DB, input SaveRecordingInput) (*SaveRecordingOutput, error) {
	if input.Blob == nil {
		return nil, errors.NewInvalidRequest("recording is empty")
	}
	if err := ValidatePath(input.Path, PathCheckWrite); err != nil {
		return nil, err
	}

	file, err := openFileNoFollow(input.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to create recording file: %w", err))
	}
	if _, err := file.Write(input.Blob.Data); err != nil {
		file.Close()
		return nil, errors.NewInternal(fmt.Errorf("failed to write recording: %w", err))
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write recording: %w", err))
	}

	output := &SaveRecordingOutput{
		Path:            input.Path,
		MIMEType:        input.Blob.MIMEType,
		Bytes:           len(input.Blob.Data),
		DurationMs:      input.DurationMs,
		DurationMinutes: capture.RoundMinutes(input.DurationMs),
		Duration:        capture.FormatDuration(input.DurationMs),
	}
	if input.Title == "" || database == nil {
		return output, nil
	}

	absPath, err := filepath.Abs(input.Path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now()
	m := &meeting.Meeting{
		ID:              id,
		Title:           input.Title,
		Date:            now.Format("2006-01-02"),
		DurationMinutes: output.DurationMinutes,
		Status:          meeting.StatusInProgress,
		AudioURL:        "file://" + filepath.ToSlash(absPath),
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
	}
	if err := db.InsertMeeting(database, m); err != nil {
		return nil, err
	}
	output.MeetingID = id
	return output, nil
}
