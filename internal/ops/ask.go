package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/meeting"
	"github.com/hpungsan/murmur/internal/rag"
)

// AskInput contains parameters for the Ask operation.
type AskInput struct {
	MeetingID string // required
	Query     string // required
	TopK      int    // default: pipeline TopK
}

// AskOutput contains the answer and the chat turns it was stored as.
type AskOutput struct {
	MeetingID string              `json:"meeting_id"`
	Answer    string              `json:"answer"`
	Sources   []rag.Snippet       `json:"sources"`
	Question  meeting.ChatMessage `json:"question"`
	Reply     meeting.ChatMessage `json:"reply"`
}

// Ask answers a question about one meeting from its indexed transcript and
// the recent chat, then appends both turns to the meeting's chat.
// A failed retrieval degrades to answering without context; a failed
// generation stores nothing.
func Ask(ctx context.Context, p *Pipeline, input AskInput) (*AskOutput, error) {
	if input.MeetingID == "" {
		return nil, errors.NewInvalidRequest("meeting_id is required")
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}

	exists, err := db.MeetingExists(p.DB, input.MeetingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFound("meeting", input.MeetingID)
	}

	topK := input.TopK
	if topK <= 0 {
		topK = p.TopK
	}

	asked := time.Now()
	snippets, err := p.Retriever.Query(ctx, input.MeetingID, query, topK)
	if err != nil {
		p.Log.Warnf("retrieval failed for meeting %s, answering without context: %v", input.MeetingID, err)
		snippets = []rag.Snippet{}
	}

	history, err := db.ListChatMessages(p.DB, input.MeetingID, p.HistoryWindow)
	if err != nil {
		return nil, err
	}

	answer, err := p.Responder.Respond(ctx, query, rag.FormatContext(snippets), toTurns(history))
	if err != nil {
		return nil, err
	}

	question, err := newChatMessage(chatIDs, input.MeetingID, meeting.SenderUser, query, asked)
	if err != nil {
		return nil, err
	}
	reply, err := newChatMessage(chatIDs, input.MeetingID, meeting.SenderAI, answer, time.Now())
	if err != nil {
		return nil, err
	}
	if err := db.InsertChatMessage(p.DB, question); err != nil {
		return nil, err
	}
	if err := db.InsertChatMessage(p.DB, reply); err != nil {
		return nil, err
	}

	return &AskOutput{
		MeetingID: input.MeetingID,
		Answer:    answer,
		Sources:   snippets,
		Question:  *question,
		Reply:     *reply,
	}, nil
}

func newChatMessage(ids *idSource, meetingID string, sender meeting.Sender, text string, at time.Time) (*meeting.ChatMessage, error) {
	id, err := ids.next(at)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &meeting.ChatMessage{
		ID:        id,
		MeetingID: meetingID,
		Sender:    sender,
		Text:      text,
		CreatedAt: at.UnixMilli(),
	}, nil
}

func toTurns(msgs []meeting.ChatMessage) []rag.Turn {
	turns := make([]rag.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := rag.RoleAssistant
		if m.Sender == meeting.SenderUser {
			role = rag.RoleUser
		}
		turns = append(turns, rag.Turn{Role: role, Text: m.Text})
	}
	return turns
}
