// Package transcript holds the diarized transcript model and turns it into
// embeddable chunks.
package transcript

import (
	"fmt"
	"strings"
)

// UnknownSpeaker labels a segment whose speaker can't be resolved in full-text output.
const UnknownSpeaker = "Unknown Speaker"

// Speaker is a diarized speaker identity.
type Speaker struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Segment is one time-stamped utterance attributed to a speaker.
// SpeakerID may reference no speaker at all.
type Segment struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	SpeakerID string  `json:"speaker_id" yaml:"speaker_id"`
	Text      string  `json:"text" yaml:"text"`
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
}

// Transcript is a speaker list plus segments in spoken order.
type Transcript struct {
	Speakers []Speaker `json:"speakers" yaml:"speakers"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Chunk is one embeddable unit derived from a segment.
type Chunk struct {
	MeetingID        string
	SegmentIndex     int
	SpeakerName      string
	TimestampSeconds float64
	DisplayText      string
	EmbeddingText    string
}

// SpeakerNames maps speaker IDs to display names.
func (t *Transcript) SpeakerNames() map[string]string {
	names := make(map[string]string, len(t.Speakers))
	for _, sp := range t.Speakers {
		names[sp.ID] = sp.Name
	}
	return names
}

// Empty reports whether there is nothing to index.
func (t *Transcript) Empty() bool {
	return t == nil || len(t.Segments) == 0
}

// Chunks converts t into one chunk per segment, preserving order.
// A dangling speaker reference becomes "Speaker {i+1}" for the segment's 0-based index i.
func Chunks(meetingID string, t *Transcript) []Chunk {
	if t.Empty() {
		return nil
	}
	names := t.SpeakerNames()
	chunks := make([]Chunk, len(t.Segments))
	for i, seg := range t.Segments {
		name := names[seg.SpeakerID]
		if name == "" {
			name = fmt.Sprintf("Speaker %d", i+1)
		}
		chunks[i] = Chunk{
			MeetingID:        meetingID,
			SegmentIndex:     i,
			SpeakerName:      name,
			TimestampSeconds: seg.StartTime,
			DisplayText:      seg.Text,
			EmbeddingText:    name + ": " + seg.Text,
		}
	}
	return chunks
}

// FullText renders the transcript as "{speaker}: {text}" lines for summarization.
func FullText(t *Transcript) string {
	if t.Empty() {
		return ""
	}
	names := t.SpeakerNames()
	lines := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		name := names[seg.SpeakerID]
		if name == "" {
			name = UnknownSpeaker
		}
		lines[i] = name + ": " + seg.Text
	}
	return strings.Join(lines, "\n")
}

// FormatClock renders seconds as m:ss, truncating fractions.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
