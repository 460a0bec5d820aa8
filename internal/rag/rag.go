// Package rag turns meeting transcripts into a queryable vector index and
// answers questions grounded in what was said.
package rag

import (
	"context"
	"time"

	"github.com/hpungsan/murmur/internal/transcript"
)

// Role of a chat-completion message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat-completion input message.
type Message struct {
	Role    Role
	Content string
}

// CompleteOptions tune a single completion call. Zero values use provider defaults.
type CompleteOptions struct {
	JSONMode    bool
	Temperature float32
	MaxTokens   int
}

// Embedder produces fixed-dimension vectors. Dimensions must match the index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatCompleter returns the text of a single completion.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// TranscriptSource reads a meeting's transcript.
// A missing meeting is reported as a NOT_FOUND error; a meeting without segments may return nil.
type TranscriptSource interface {
	Transcript(ctx context.Context, meetingID string) (*transcript.Transcript, error)
}

// Sleeper pauses between batches. It returns early with ctx.Err() on cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
