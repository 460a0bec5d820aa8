package rag

import (
	"context"
	"strings"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/meeting"
)

// DefaultHistoryWindow is how many prior turns accompany a query.
const DefaultHistoryWindow = 10

// Turn is a prior exchange in the conversation.
type Turn struct {
	Role Role
	Text string
}

// Responder drives the chat-completion capability for answers, summaries and action items.
type Responder struct {
	chat          ChatCompleter
	historyWindow int
	log           *logging.Logger
}

// NewResponder wires a Responder. historyWindow <= 0 uses DefaultHistoryWindow.
func NewResponder(chat ChatCompleter, historyWindow int, log *logging.Logger) *Responder {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Responder{chat: chat, historyWindow: historyWindow, log: log}
}

// Respond answers query from the retrieved context, continuing the last
// historyWindow turns of history (oldest first). Provider failures are not retried.
func (r *Responder) Respond(ctx context.Context, query, contextText string, history []Turn) (string, error) {
	system := noContextSystemPrompt
	if strings.TrimSpace(contextText) != "" {
		system = meetingSystemPrompt(contextText)
	}

	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	for _, t := range history {
		role := RoleAssistant
		if t.Role == RoleUser {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: t.Text})
	}
	messages = append(messages, Message{Role: RoleUser, Content: query})

	answer, err := r.chat.Complete(ctx, messages, CompleteOptions{Temperature: 0.7, MaxTokens: 2048})
	if err != nil {
		return "", errors.NewGenerationFailure("response", err)
	}
	r.log.Debugf("generated response (%d chars)", len(answer))
	return answer, nil
}

// Summarize produces a structured summary. It never fails: a bad structured
// response falls back to a free-text summary, and a failing fallback yields a
// fixed degraded result.
func (r *Responder) Summarize(ctx context.Context, transcriptText string) meeting.Summary {
	raw, err := r.chat.Complete(ctx, []Message{
		{Role: RoleSystem, Content: summarySystemPrompt},
		{Role: RoleUser, Content: summaryPrompt(transcriptText)},
	}, CompleteOptions{JSONMode: true})
	if err != nil {
		r.log.Warnf("structured summary failed: %v", err)
		return r.fallbackSummary(ctx, transcriptText)
	}

	res := ParseSummary(raw)
	if !res.OK() {
		r.log.Warnf("structured summary unusable: %v", res.Err)
		return r.fallbackSummary(ctx, transcriptText)
	}
	return res.Summary
}

func (r *Responder) fallbackSummary(ctx context.Context, transcriptText string) meeting.Summary {
	r.log.Infof("falling back to free-text summary")
	text, err := r.chat.Complete(ctx, []Message{
		{Role: RoleUser, Content: fallbackSummaryPrompt(transcriptText)},
	}, CompleteOptions{})
	if err != nil {
		r.log.Errorf("fallback summary failed: %v", err)
		return degradedSummary(failedKeyPoint, failedFullSummary)
	}
	if strings.TrimSpace(text) == "" {
		text = emptyFallbackSummary
	}
	return degradedSummary(fallbackKeyPoint, text)
}

// ExtractActionItems returns "[Assignee] Task (Due: date)" strings.
// Lines that aren't "- " bullets are dropped. A provider failure is logged
// and yields no items.
func (r *Responder) ExtractActionItems(ctx context.Context, transcriptText string) []string {
	text, err := r.chat.Complete(ctx, []Message{
		{Role: RoleSystem, Content: actionItemsSystemPrompt},
		{Role: RoleUser, Content: actionItemsPrompt(transcriptText)},
	}, CompleteOptions{})
	if err != nil {
		r.log.Errorf("extract action items: %v", err)
		return []string{}
	}
	return ParseActionItems(text)
}

// ParseActionItems extracts bullet items from a model response.
func ParseActionItems(text string) []string {
	items := []string{}
	if strings.Contains(text, noActionItems) {
		return items
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") && len(line) > 2 {
			items = append(items, line[2:])
		}
	}
	return items
}
