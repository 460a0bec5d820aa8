package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/transcript"
	"github.com/hpungsan/murmur/internal/vector"
)

// StoreOptions control batching. Zero values fall back to DefaultStoreOptions.
type StoreOptions struct {
	EmbedBatchSize   int
	EmbedBatchDelay  time.Duration
	UpsertBatchSize  int
	UpsertBatchDelay time.Duration

	// Sleep defaults to SleepContext.
	Sleep Sleeper
}

// DefaultStoreOptions returns the reference batching: 10 texts per embed call
// one second apart, 100 records per upsert half a second apart.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		EmbedBatchSize:   10,
		EmbedBatchDelay:  time.Second,
		UpsertBatchSize:  100,
		UpsertBatchDelay: 500 * time.Millisecond,
	}
}

// GenerateResult describes one Generate run.
type GenerateResult struct {
	MeetingID     string `json:"meeting_id"`
	Skipped       bool   `json:"skipped"`
	Forced        bool   `json:"forced"`
	Chunks        int    `json:"chunks"`
	EmbedBatches  int    `json:"embed_batches"`
	UpsertBatches int    `json:"upsert_batches"`
}

// EmbeddingStore builds and refreshes a meeting's vectors.
type EmbeddingStore struct {
	source   TranscriptSource
	embedder Embedder
	index    vector.Index
	opts     StoreOptions
	log      *logging.Logger
}

// NewEmbeddingStore wires the store's collaborators.
func NewEmbeddingStore(source TranscriptSource, embedder Embedder, index vector.Index, opts StoreOptions, log *logging.Logger) *EmbeddingStore {
	def := DefaultStoreOptions()
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = def.EmbedBatchSize
	}
	if opts.UpsertBatchSize <= 0 {
		opts.UpsertBatchSize = def.UpsertBatchSize
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	return &EmbeddingStore{source: source, embedder: embedder, index: index, opts: opts, log: log}
}

// Generate embeds every segment of the meeting's transcript and upserts the vectors.
//
// Without force, a meeting that already has vectors is left alone. With force,
// existing vectors are deleted before anything else happens. Any batch failure
// aborts the run.
func (s *EmbeddingStore) Generate(ctx context.Context, meetingID string, force bool) (*GenerateResult, error) {
	res := &GenerateResult{MeetingID: meetingID, Forced: force}
	filter := vector.Filter{MeetingID: meetingID}

	if !force {
		exists, err := s.index.ExistsByFilter(ctx, filter)
		if err != nil {
			return nil, errors.NewVectorStoreFailure("check", err)
		}
		if exists {
			s.log.Infof("embeddings already exist for meeting %s", meetingID)
			res.Skipped = true
			return res, nil
		}
	} else {
		s.log.Infof("force regenerating embeddings for meeting %s", meetingID)
		if err := s.index.DeleteByFilter(ctx, filter); err != nil {
			return nil, errors.NewVectorStoreFailure("delete", err)
		}
	}

	t, err := s.source.Transcript(ctx, meetingID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewTranscriptUnavailable(meetingID)
		}
		return nil, err
	}
	if t.Empty() {
		return nil, errors.NewTranscriptUnavailable(meetingID)
	}

	chunks := transcript.Chunks(meetingID, t)
	res.Chunks = len(chunks)
	s.log.Infof("embedding %d segments for meeting %s", len(chunks), meetingID)

	vectors, batches, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	res.EmbedBatches = batches

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Record{
			ID:     vector.RecordID(meetingID, c.SegmentIndex),
			Values: vectors[i],
			Metadata: vector.Metadata{
				MeetingID:        meetingID,
				Text:             c.DisplayText,
				Speaker:          c.SpeakerName,
				TimestampSeconds: c.TimestampSeconds,
				SegmentIndex:     c.SegmentIndex,
			},
		}
	}

	upserts, err := s.upsert(ctx, records)
	if err != nil {
		return nil, err
	}
	res.UpsertBatches = upserts

	s.log.Slog().Info("stored embeddings",
		"meeting", meetingID,
		"records", len(records),
		"embed_batches", res.EmbedBatches,
		"upsert_batches", res.UpsertBatches)
	return res, nil
}

func (s *EmbeddingStore) embed(ctx context.Context, chunks []transcript.Chunk) ([][]float32, int, error) {
	size := s.opts.EmbedBatchSize
	total := (len(chunks) + size - 1) / size
	out := make([][]float32, 0, len(chunks))

	for b := 0; b < total; b++ {
		lo, hi := b*size, min((b+1)*size, len(chunks))
		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.EmbeddingText)
		}

		s.log.Infof("processing embedding batch %d/%d", b+1, total)
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, b, errors.NewEmbeddingBatchFailure(b+1, total, err)
		}
		if len(vecs) != len(texts) {
			return nil, b, errors.NewEmbeddingBatchFailure(b+1, total,
				fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts)))
		}
		out = append(out, vecs...)

		if b < total-1 {
			if err := s.opts.Sleep(ctx, s.opts.EmbedBatchDelay); err != nil {
				return nil, b + 1, err
			}
		}
	}
	return out, total, nil
}

func (s *EmbeddingStore) upsert(ctx context.Context, records []vector.Record) (int, error) {
	size := s.opts.UpsertBatchSize
	total := (len(records) + size - 1) / size

	for b := 0; b < total; b++ {
		lo, hi := b*size, min((b+1)*size, len(records))
		if err := s.index.Upsert(ctx, records[lo:hi]); err != nil {
			return b, errors.NewVectorStoreFailure("store", err)
		}
		if b < total-1 {
			if err := s.opts.Sleep(ctx, s.opts.UpsertBatchDelay); err != nil {
				return b + 1, err
			}
		}
	}
	return total, nil
}
