// Package vector defines the meeting-scoped vector index contract and the
// similarity math shared by its implementations.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Metadata travels with every stored vector.
// Text is the original segment text, without the speaker prefix.
type Metadata struct {
	MeetingID        string  `json:"meeting_id"`
	Text             string  `json:"text"`
	Speaker          string  `json:"speaker"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	SegmentIndex     int     `json:"segment_index"`
}

// Record is one upsertable vector.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Filter scopes index operations. MeetingID is required.
type Filter struct {
	MeetingID string
}

// Match is a query hit.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Index is a vector store with metadata filtering.
// Upsert overwrites records with the same ID.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, values []float32, topK int, filter Filter) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
	ExistsByFilter(ctx context.Context, filter Filter) (bool, error)
}

// RecordID returns the deterministic ID for a meeting segment.
func RecordID(meetingID string, segmentIndex int) string {
	return fmt.Sprintf("%s-segment-%d", meetingID, segmentIndex)
}

// ErrDimensionMismatch is returned when two vectors can't be compared.
var ErrDimensionMismatch = errors.New("vector dimensions differ")

// Cosine returns the cosine similarity of a and b.
// A zero vector scores 0 against anything.
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Candidate is a stored vector considered by TopK.
type Candidate struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// TopK scores candidates against query and returns the best k, highest first.
// Ties keep segment order so results are stable.
func TopK(query []float32, candidates []Candidate, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score, err := Cosine(query, c.Values)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", c.ID, err)
		}
		matches = append(matches, Match{ID: c.ID, Score: score, Metadata: c.Metadata})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Metadata.SegmentIndex < matches[j].Metadata.SegmentIndex
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Encode packs values as little-endian float32s for blob storage.
func Encode(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Decode reverses Encode.
func Decode(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values, nil
}
