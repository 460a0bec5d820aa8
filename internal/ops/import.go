package ops

import (
	"database/sql"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
	"github.com/hpungsan/murmur/internal/transcript"
)

// maxImportBytes bounds transcript files read into memory.
const maxImportBytes = 32 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required: .json, .yaml or .yml
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Speakers int    `json:"speakers"`
	Segments int    `json:"segments"`
}

// Import reads a transcript file and stores it as a new meeting.
// Segments get fresh IDs; speaker IDs are kept as written so segment
// references stay valid.
func Import(database *sql.DB, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open transcript file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read transcript file: %w", err))
	}
	if len(data) > maxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("transcript file exceeds %d bytes", maxImportBytes))
	}

	f, err := transcript.Parse(data, filepath.Ext(input.Path))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	now := time.Now()
	ids := newIDSource()
	id, err := ids.next(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	t := f.Transcript
	t.Segments = append([]transcript.Segment(nil), f.Segments...)
	for i := range t.Segments {
		segID, err := ids.next(now)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		t.Segments[i].ID = segID
	}

	status := meeting.StatusCompleted
	if t.Empty() {
		status = meeting.StatusAudioEmpty
	}

	m := &meeting.Meeting{
		ID:              id,
		Title:           f.Title,
		Date:            f.Date,
		DurationMinutes: math.Round(f.Duration*10) / 10,
		Status:          status,
		AudioURL:        f.AudioURL,
		Transcript:      &t,
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
	}
	if err := db.InsertMeeting(database, m); err != nil {
		return nil, err
	}

	return &ImportOutput{
		ID:       id,
		Title:    m.Title,
		Speakers: len(t.Speakers),
		Segments: len(t.Segments),
	}, nil
}
