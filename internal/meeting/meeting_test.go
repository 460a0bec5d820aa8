package meeting

import (
	"testing"

	"github.com/hpungsan/murmur/internal/transcript"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusCompleted, false},
		{"scheduled", StatusScheduled, false},
		{"audioempty", StatusAudioEmpty, false},
		{"archived", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToOverview(t *testing.T) {
	m := &Meeting{
		ID:              "01HX",
		Title:           "Planning",
		DurationMinutes: 2.1,
		Status:          StatusCompleted,
		Transcript: &transcript.Transcript{
			Speakers: []transcript.Speaker{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			Segments: []transcript.Segment{{SpeakerID: "a", Text: "hi"}},
		},
	}

	o := m.ToOverview()
	if o.Participants != 2 {
		t.Errorf("Participants = %d, want 2", o.Participants)
	}
	if o.SegmentCount != 1 {
		t.Errorf("SegmentCount = %d, want 1", o.SegmentCount)
	}
	if !o.TranscriptionAvailable {
		t.Error("TranscriptionAvailable = false, want true")
	}
}

func TestToOverview_NoTranscript(t *testing.T) {
	m := &Meeting{ID: "01HX", Title: "Empty", Status: StatusAudioEmpty}

	o := m.ToOverview()
	if o.Participants != 0 || o.SegmentCount != 0 || o.TranscriptionAvailable {
		t.Errorf("Overview = %+v, want zero transcript fields", o)
	}
}
