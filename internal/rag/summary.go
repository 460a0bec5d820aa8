package rag

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/murmur/internal/meeting"
)

// Degraded summary values.
const (
	fallbackKeyPoint     = "Summary generated"
	failedKeyPoint       = "Summary generation failed"
	failedFullSummary    = "Could not generate summary"
	defaultFullSummary   = "Summary generation completed"
	emptyFallbackSummary = "No summary generated"
)

// SummaryResult is the outcome of parsing a structured summary response.
// Exactly one of Summary or Err is meaningful.
type SummaryResult struct {
	Summary meeting.Summary
	Err     error
}

// OK reports whether parsing succeeded.
func (r SummaryResult) OK() bool { return r.Err == nil }

type rawActionItem struct {
	Assignee string `json:"assignee"`
	Task     string `json:"task"`
	DueDate  string `json:"dueDate"`
}

type rawSummary struct {
	KeyPoints   []string        `json:"keyPoints"`
	ActionItems []rawActionItem `json:"actionItems"`
	Decisions   []string        `json:"decisions"`
	FullSummary string          `json:"fullSummary"`
}

// ParseSummary validates a JSON-mode summary response.
// Anything other than a JSON object with correctly typed fields fails.
// Missing fields become empty.
func ParseSummary(raw string) SummaryResult {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '{' {
		return SummaryResult{Err: fmt.Errorf("summary response is not a JSON object")}
	}

	var rs rawSummary
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rs); err != nil {
		return SummaryResult{Err: fmt.Errorf("decode summary: %w", err)}
	}
	if dec.More() {
		return SummaryResult{Err: fmt.Errorf("trailing data after summary object")}
	}

	s := meeting.Summary{
		KeyPoints:   nonNil(rs.KeyPoints),
		ActionItems: make([]meeting.ActionItem, 0, len(rs.ActionItems)),
		Decisions:   nonNil(rs.Decisions),
		FullSummary: rs.FullSummary,
	}
	for _, a := range rs.ActionItems {
		s.ActionItems = append(s.ActionItems, meeting.ActionItem{Assignee: a.Assignee, Task: a.Task, DueDate: a.DueDate})
	}
	if s.FullSummary == "" {
		s.FullSummary = defaultFullSummary
	}
	return SummaryResult{Summary: s}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func degradedSummary(keyPoint, full string) meeting.Summary {
	return meeting.Summary{
		KeyPoints:   []string{keyPoint},
		ActionItems: []meeting.ActionItem{},
		Decisions:   []string{},
		FullSummary: full,
	}
}
