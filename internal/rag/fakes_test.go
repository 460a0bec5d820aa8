package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/transcript"
	"github.com/hpungsan/murmur/internal/vector"
)

type fakeSource map[string]*transcript.Transcript

func (f fakeSource) Transcript(_ context.Context, meetingID string) (*transcript.Transcript, error) {
	t, ok := f[meetingID]
	if !ok {
		return nil, errors.NewNotFound("meeting", meetingID)
	}
	return t, nil
}

// fakeEmbedder maps texts to vectors through vectors, or to a length-based default.
type fakeEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	batchCalls [][]string
	failOn     int // 1-based batch call that fails; 0 never
	short      bool
}

func (f *fakeEmbedder) vec(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return []float32{float32(len(text)), 1}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, texts)
	if f.failOn == len(f.batchCalls) {
		return nil, fmt.Errorf("rate limited")
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vec(t))
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

// fakeIndex is an in-memory vector.Index that records the order of mutating calls.
type fakeIndex struct {
	mu           sync.Mutex
	records      map[string]vector.Record
	ops          []string
	upserts      int
	failOp       string
	ignoreFilter bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]vector.Record)}
}

func (f *fakeIndex) fail(op string) error {
	if f.failOp == op {
		return fmt.Errorf("%s unavailable", op)
	}
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, records []vector.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "upsert")
	if err := f.fail("upsert"); err != nil {
		return err
	}
	f.upserts++
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, values []float32, topK int, filter vector.Filter) ([]vector.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("query"); err != nil {
		return nil, err
	}
	var candidates []vector.Candidate
	for _, r := range f.records {
		if !f.ignoreFilter && r.Metadata.MeetingID != filter.MeetingID {
			continue
		}
		candidates = append(candidates, vector.Candidate{ID: r.ID, Values: r.Values, Metadata: r.Metadata})
	}
	return vector.TopK(values, candidates, topK)
}

func (f *fakeIndex) DeleteByFilter(_ context.Context, filter vector.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete")
	if err := f.fail("delete"); err != nil {
		return err
	}
	for id, r := range f.records {
		if r.Metadata.MeetingID == filter.MeetingID {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeIndex) ExistsByFilter(_ context.Context, filter vector.Filter) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "exists")
	if err := f.fail("exists"); err != nil {
		return false, err
	}
	for _, r := range f.records {
		if r.Metadata.MeetingID == filter.MeetingID {
			return true, nil
		}
	}
	return false, nil
}

// recordSleeps collects requested delays without sleeping.
type recordSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

type chatCall struct {
	messages []Message
	opts     CompleteOptions
}

// fakeChat answers from a script; each entry is a response or an error.
type fakeChat struct {
	script []any
	calls  []chatCall
}

func (f *fakeChat) Complete(_ context.Context, messages []Message, opts CompleteOptions) (string, error) {
	f.calls = append(f.calls, chatCall{messages: messages, opts: opts})
	if len(f.script) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	next := f.script[0]
	f.script = f.script[1:]
	switch v := next.(type) {
	case error:
		return "", v
	case string:
		return v, nil
	}
	return "", fmt.Errorf("bad script entry %T", next)
}
