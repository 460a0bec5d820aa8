package meeting

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one persisted turn of the per-meeting assistant chat.
type ChatMessage struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`

	// CreatedAt is a Unix timestamp in milliseconds so turns written in the same second keep their order
	CreatedAt int64 `json:"created_at"`
}
