// Package llm adapts hosted model providers to the rag capability interfaces.
package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/hpungsan/murmur/internal/rag"
)

// OpenAIConfig selects the account, endpoint and models.
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// OpenAI implements rag.Embedder and rag.ChatCompleter.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

var (
	_ rag.Embedder      = (*OpenAI)(nil)
	_ rag.ChatCompleter = (*OpenAI)(nil)
)

// NewOpenAI creates a client. An empty API key is rejected up front so the
// failure names the setting instead of surfacing as a 401 mid-run.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured (set MURMUR_OPENAI_API_KEY or OPENAI_API_KEY)")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

// Embed returns the embedding of one text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(o.cfg.EmbeddingModel),
		Dimensions: o.cfg.EmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Complete runs one chat completion and returns the first choice's text.
func (o *OpenAI) Complete(ctx context.Context, messages []rag.Message, opts rag.CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.ChatModel,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: chatRole(m.Role), Content: m.Content}
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func chatRole(r rag.Role) string {
	switch r {
	case rag.RoleSystem:
		return openai.ChatMessageRoleSystem
	case rag.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
