package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hpungsan/murmur/internal/config"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/rag"
)

const standupYAML = `title: Weekly sync
date: "2026-03-02"
duration: 2.14
speakers:
  - id: s1
    name: Alice
    color: "#e11d48"
  - id: s2
    name: Bob
segments:
  - speaker_id: s1
    text: The budget is approved for next quarter.
    start_time: 0
    end_time: 4
  - speaker_id: s2
    text: The launch moves to April.
    start_time: 65
    end_time: 70
`

// keywordEmbedder places texts on fixed axes so retrieval is predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (e *keywordEmbedder) vec(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.1, 0, 0}
	if strings.Contains(lower, "budget") {
		v[1] = 1
	}
	if strings.Contains(lower, "launch") {
		v[2] = 1
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	return e.vec(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

// scriptedChat replies from a queue and records every prompt.
type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	fail    error
	calls   [][]rag.Message
}

func (c *scriptedChat) Complete(_ context.Context, messages []rag.Message, _ rag.CompleteOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages)
	if c.fail != nil {
		return "", c.fail
	}
	if len(c.replies) == 0 {
		return "", fmt.Errorf("no scripted reply")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next, nil
}

func (c *scriptedChat) lastCall() []rag.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return nil
	}
	return c.calls[len(c.calls)-1]
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func newTestPipeline(t *testing.T) (*Pipeline, *keywordEmbedder, *scriptedChat) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.EmbedBatchDelayMs = 0
	cfg.UpsertBatchDelayMs = 0

	embedder := &keywordEmbedder{}
	chat := &scriptedChat{}
	return NewPipeline(openTestDB(t), cfg, embedder, chat, logging.Discard()), embedder, chat
}

func writeTranscriptFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func importStandup(t *testing.T, database *sql.DB) string {
	t.Helper()
	out, err := Import(database, ImportInput{Path: writeTranscriptFile(t, "standup.yaml", standupYAML)})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	return out.ID
}

func stringPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}
