package ops

import (
	"crypto/rand"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/murmur/internal/config"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/rag"
	"github.com/hpungsan/murmur/internal/vector"
)

// Pagination limits
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Pipeline holds the RAG components shared by the meeting operations.
// Build it once at startup with NewPipeline and pass it to each call.
type Pipeline struct {
	DB        *sql.DB
	Index     vector.Index
	Store     *rag.EmbeddingStore
	Retriever *rag.Retriever
	Responder *rag.Responder

	TopK          int
	HistoryWindow int

	Log *logging.Logger
}

// NewPipeline wires the store, retriever and responder over database.
// embedder and chat are the provider capabilities.
func NewPipeline(database *sql.DB, cfg *config.Config, embedder rag.Embedder, chat rag.ChatCompleter, log *logging.Logger) *Pipeline {
	index := db.NewVectorIndex(database)
	opts := rag.StoreOptions{
		EmbedBatchSize:   cfg.EmbedBatchSize,
		EmbedBatchDelay:  time.Duration(cfg.EmbedBatchDelayMs) * time.Millisecond,
		UpsertBatchSize:  cfg.UpsertBatchSize,
		UpsertBatchDelay: time.Duration(cfg.UpsertBatchDelayMs) * time.Millisecond,
	}

	return &Pipeline{
		DB:            database,
		Index:         index,
		Store:         rag.NewEmbeddingStore(db.NewTranscripts(database), embedder, index, opts, log),
		Retriever:     rag.NewRetriever(embedder, index, log),
		Responder:     rag.NewResponder(chat, cfg.HistoryWindow, log),
		TopK:          cfg.TopK,
		HistoryWindow: cfg.HistoryWindow,
		Log:           log,
	}
}

// idSource hands out ULIDs that sort in creation order, even within one millisecond.
type idSource struct {
	mu      sync.Mutex
	entropy io.Reader
}

// chatIDs is shared by every chat turn so turns stored in the same millisecond keep their order.
var chatIDs = newIDSource()

func newIDSource() *idSource {
	return &idSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *idSource) next(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// generateULID creates a single new ULID.
func generateULID() (string, error) {
	return newIDSource().next(time.Now())
}
