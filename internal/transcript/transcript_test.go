package transcript

import (
	"os"
	"path/filepath"
	"testing"
)

func sample() *Transcript {
	return &Transcript{
		Speakers: []Speaker{
			{ID: "s1", Name: "Alice", Color: "#e11d48"},
			{ID: "s2", Name: "Bob", Color: "#2563eb"},
		},
		Segments: []Segment{
			{SpeakerID: "s1", Text: "Let's start with the roadmap.", StartTime: 0, EndTime: 3.5},
			{SpeakerID: "s2", Text: "Q3 is mostly infra work.", StartTime: 3.5, EndTime: 7},
			{SpeakerID: "gone", Text: "I'll take the migration.", StartTime: 65.2, EndTime: 68},
		},
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunks("m1", sample())

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}

	tests := []struct {
		idx         int
		speaker     string
		embedding   string
		timestamp   float64
		displayText string
	}{
		{0, "Alice", "Alice: Let's start with the roadmap.", 0, "Let's start with the roadmap."},
		{1, "Bob", "Bob: Q3 is mostly infra work.", 3.5, "Q3 is mostly infra work."},
		{2, "Speaker 3", "Speaker 3: I'll take the migration.", 65.2, "I'll take the migration."},
	}
	for _, tt := range tests {
		c := chunks[tt.idx]
		if c.SegmentIndex != tt.idx {
			t.Errorf("chunks[%d].SegmentIndex = %d", tt.idx, c.SegmentIndex)
		}
		if c.MeetingID != "m1" {
			t.Errorf("chunks[%d].MeetingID = %q, want m1", tt.idx, c.MeetingID)
		}
		if c.SpeakerName != tt.speaker {
			t.Errorf("chunks[%d].SpeakerName = %q, want %q", tt.idx, c.SpeakerName, tt.speaker)
		}
		if c.EmbeddingText != tt.embedding {
			t.Errorf("chunks[%d].EmbeddingText = %q, want %q", tt.idx, c.EmbeddingText, tt.embedding)
		}
		if c.DisplayText != tt.displayText {
			t.Errorf("chunks[%d].DisplayText = %q, want %q", tt.idx, c.DisplayText, tt.displayText)
		}
		if c.TimestampSeconds != tt.timestamp {
			t.Errorf("chunks[%d].TimestampSeconds = %v, want %v", tt.idx, c.TimestampSeconds, tt.timestamp)
		}
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunks("m1", nil); got != nil {
		t.Errorf("Chunks(nil) = %v, want nil", got)
	}
	if got := Chunks("m1", &Transcript{Speakers: []Speaker{{ID: "s1", Name: "A"}}}); got != nil {
		t.Errorf("Chunks(no segments) = %v, want nil", got)
	}
}

func TestFullText(t *testing.T) {
	want := "Alice: Let's start with the roadmap.\n" +
		"Bob: Q3 is mostly infra work.\n" +
		"Unknown Speaker: I'll take the migration."
	if got := FullText(sample()); got != want {
		t.Errorf("FullText() = %q, want %q", got, want)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5.9, "0:05"},
		{65.2, "1:05"},
		{600, "10:00"},
		{-3, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standup.yaml")
	body := `title: Standup
date: "2026-03-02"
duration: 12.5
speakers:
  - id: s1
    name: Alice
    color: "#e11d48"
segments:
  - speaker_id: s1
    text: Shipping today.
    start_time: 0
    end_time: 2
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Title != "Standup" || f.Date != "2026-03-02" || f.Duration != 12.5 {
		t.Errorf("header = %q %q %v", f.Title, f.Date, f.Duration)
	}
	if len(f.Speakers) != 1 || f.Speakers[0].Name != "Alice" {
		t.Errorf("Speakers = %+v", f.Speakers)
	}
	if len(f.Segments) != 1 || f.Segments[0].Text != "Shipping today." {
		t.Errorf("Segments = %+v", f.Segments)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standup.json")
	body := `{"title": "Standup", "speakers": [{"id": "s1", "name": "Alice"}],
		"segments": [{"speaker_id": "s1", "text": "Hi", "start_time": 1, "end_time": 2}]}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Segments) != 1 || f.Segments[0].SpeakerID != "s1" {
		t.Errorf("Segments = %+v", f.Segments)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no title", `{"segments": []}`},
		{"speaker without id", `{"title": "x", "speakers": [{"name": "A"}]}`},
		{"duplicate speaker", `{"title": "x", "speakers": [{"id": "a", "name": "A"}, {"id": "a", "name": "B"}]}`},
		{"end before start", `{"title": "x", "segments": [{"speaker_id": "a", "text": "t", "start_time": 5, "end_time": 1}]}`},
		{"malformed", `{title`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body), ".json"); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}
