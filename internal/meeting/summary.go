package meeting

// ActionItem is a structured follow-up extracted from a meeting.
type ActionItem struct {
	Assignee string `json:"assignee"`
	Task     string `json:"task"`
	DueDate  string `json:"due_date,omitempty"`
}

// Summary is the structured result of summarizing a transcript.
type Summary struct {
	KeyPoints   []string     `json:"key_points"`
	ActionItems []ActionItem `json:"action_items"`
	Decisions   []string     `json:"decisions"`
	FullSummary string       `json:"full_summary"`
}

// StoredSummary is a Summary persisted for a meeting, together with the
// free-form action list extracted alongside it.
type StoredSummary struct {
	MeetingID  string   `json:"meeting_id"`
	Summary    Summary  `json:"summary"`
	ActionList []string `json:"action_list"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}
