package rag

import (
	"strings"

	"github.com/hpungsan/murmur/internal/transcript"
)

// NoRelevantContext stands in for retrieved context when retrieval finds nothing.
const NoRelevantContext = "No relevant context found in the meeting transcription."

// FormatContext renders snippets as "{speaker} (m:ss): {text}" blocks separated by blank lines.
// A zero timestamp omits the time; a missing speaker becomes "Unknown Speaker".
func FormatContext(snippets []Snippet) string {
	if len(snippets) == 0 {
		return NoRelevantContext
	}
	blocks := make([]string, len(snippets))
	for i, s := range snippets {
		speaker := s.Speaker
		if speaker == "" {
			speaker = transcript.UnknownSpeaker
		}
		var b strings.Builder
		b.WriteString(speaker)
		if s.TimestampSeconds != 0 {
			b.WriteString(" (")
			b.WriteString(transcript.FormatClock(s.TimestampSeconds))
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(s.Text)
		blocks[i] = b.String()
	}
	return strings.Join(blocks, "\n\n")
}
