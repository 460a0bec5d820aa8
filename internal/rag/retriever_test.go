package rag

import (
	"context"
	"testing"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/vector"
)

func seedIndex(idx *fakeIndex) {
	add := func(meetingID string, i int, speaker, text string, ts float64, values ...float32) {
		id := vector.RecordID(meetingID, i)
		idx.records[id] = vector.Record{ID: id, Values: values, Metadata: vector.Metadata{
			MeetingID: meetingID, Text: text, Speaker: speaker, TimestampSeconds: ts, SegmentIndex: i,
		}}
	}
	add("m1", 0, "Alice", "budget is tight", 0, 1, 0)
	add("m1", 1, "Bob", "hiring freeze", 30, 0, 1)
	add("m1", 2, "Alice", "budget review friday", 65, 0.8, 0.2)
	add("m2", 0, "Eve", "budget secret", 10, 1, 0)
	add("m2", 1, "Eve", "budget secret two", 12, 1, 0.01)
}

func TestRetriever_ScopedAndRanked(t *testing.T) {
	for _, leaky := range []bool{false, true} {
		idx := newFakeIndex()
		idx.ignoreFilter = leaky
		seedIndex(idx)
		emb := &fakeEmbedder{vectors: map[string][]float32{"budget?": {1, 0}}}
		r := NewRetriever(emb, idx, logging.Discard())

		got, err := r.Query(context.Background(), "m1", "budget?", 2)
		if err != nil {
			t.Fatalf("Query(leaky=%v) error = %v", leaky, err)
		}
		for _, s := range got {
			if s.MeetingID != "m1" {
				t.Errorf("leaky=%v: snippet %s from meeting %s", leaky, s.ID, s.MeetingID)
			}
		}
		if !leaky {
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if got[0].ID != "m1-segment-0" || got[1].ID != "m1-segment-2" {
				t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
			}
			if got[0].Score < got[1].Score {
				t.Errorf("scores not descending: %v < %v", got[0].Score, got[1].Score)
			}
			if got[1].Text != "budget review friday" || got[1].Speaker != "Alice" || got[1].TimestampSeconds != 65 {
				t.Errorf("snippet = %+v", got[1])
			}
		}
	}
}

func TestRetriever_DefaultTopK(t *testing.T) {
	idx := newFakeIndex()
	for i := 0; i < 8; i++ {
		id := vector.RecordID("m1", i)
		idx.records[id] = vector.Record{ID: id, Values: []float32{1, float32(i)}, Metadata: vector.Metadata{MeetingID: "m1", SegmentIndex: i}}
	}
	r := NewRetriever(&fakeEmbedder{vectors: map[string][]float32{"q": {1, 1}}}, idx, logging.Discard())

	got, err := r.Query(context.Background(), "m1", "q", 0)
	if err != nil {
		t.Fatalf("Query error = %v", err)
	}
	if len(got) != DefaultTopK {
		t.Errorf("len = %d, want %d", len(got), DefaultTopK)
	}
}

func TestRetriever_EmptyIsNotError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, newFakeIndex(), logging.Discard())

	got, err := r.Query(context.Background(), "m1", "anything", 5)
	if err != nil {
		t.Fatalf("Query error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Query = %#v, want empty slice", got)
	}
}

func TestRetriever_IndexFailure(t *testing.T) {
	idx := newFakeIndex()
	idx.failOp = "query"
	r := NewRetriever(&fakeEmbedder{}, idx, logging.Discard())

	_, err := r.Query(context.Background(), "m1", "q", 5)
	if !errors.Is(err, errors.ErrVectorStoreFailure) {
		t.Errorf("Query error = %v, want VECTOR_STORE_FAILURE", err)
	}
}

func TestFormatContext(t *testing.T) {
	snippets := []Snippet{
		{Speaker: "Alice", TimestampSeconds: 65, Text: "budget review friday"},
		{Speaker: "", TimestampSeconds: 0, Text: "opening remarks"},
	}
	want := "Alice (1:05): budget review friday\n\nUnknown Speaker: opening remarks"
	if got := FormatContext(snippets); got != want {
		t.Errorf("FormatContext() = %q, want %q", got, want)
	}
	if got := FormatContext(nil); got != NoRelevantContext {
		t.Errorf("FormatContext(nil) = %q, want %q", got, NoRelevantContext)
	}
}
