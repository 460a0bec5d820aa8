package meeting

import (
	"fmt"

	"github.com/hpungsan/murmur/internal/transcript"
)

// Status is the processing state of a meeting.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusAudioEmpty Status = "audioempty"
)

// ParseStatus validates s. Empty maps to StatusCompleted, the state of an imported transcript.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusCompleted, nil
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusAudioEmpty:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown meeting status %q", s)
}

// Meeting is a recorded meeting and its diarized transcript.
type Meeting struct {
	// ID is a ULID
	ID string

	Title string

	// Date is the meeting date as given on import (free-form, usually ISO 8601)
	Date string

	// DurationMinutes is rounded to one decimal
	DurationMinutes float64

	Status Status

	// AudioURL points at the uploaded recording, if any
	AudioURL string

	// Transcript is nil until one is attached
	Transcript *transcript.Transcript

	// CreatedAt is the Unix timestamp when the meeting was imported
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last transcript edit
	UpdatedAt int64
}

// TranscriptionAvailable reports whether the meeting has segments to work with.
func (m *Meeting) TranscriptionAvailable() bool {
	return !m.Transcript.Empty()
}

// Participants is the number of diarized speakers.
func (m *Meeting) Participants() int {
	if m.Transcript == nil {
		return 0
	}
	return len(m.Transcript.Speakers)
}
