package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/stretchr/testify/require"
)

const structuredSummary = `{
  "keyPoints": ["Budget approved", "Launch moved"],
  "actionItems": [{"assignee": "Bob", "task": "Update the launch plan", "dueDate": "Friday"}],
  "decisions": ["Launch in April"],
  "fullSummary": "The team approved the budget and moved the launch."
}`

func TestSummarize_GeneratesThenReuses(t *testing.T) {
	ctx := context.Background()
	p, _, chat := newTestPipeline(t)
	id := importStandup(t, p.DB)

	chat.replies = []string{structuredSummary, "- [Bob] Update the launch plan (Due: Friday)"}
	out, err := Summarize(ctx, p, SummarizeInput{MeetingID: id})
	require.NoError(t, err)
	require.True(t, out.Generated)
	require.Equal(t, []string{"Budget approved", "Launch moved"}, out.Summary.KeyPoints)
	require.Len(t, out.Summary.ActionItems, 1)
	require.Equal(t, []string{"[Bob] Update the launch plan (Due: Friday)"}, out.ActionList)
	require.NotZero(t, out.CreatedAt)

	// The summarizer saw the speaker-labelled transcript.
	prompt := chat.calls[0][1].Content
	require.Contains(t, prompt, "Alice: The budget is approved for next quarter.")
	require.Contains(t, prompt, "Bob: The launch moves to April.")

	calls := len(chat.calls)
	again, err := Summarize(ctx, p, SummarizeInput{MeetingID: id})
	require.NoError(t, err)
	require.False(t, again.Generated)
	require.Equal(t, out.Summary, again.Summary)
	require.Equal(t, calls, len(chat.calls))
}

func TestSummarize_Regenerate(t *testing.T) {
	ctx := context.Background()
	p, _, chat := newTestPipeline(t)
	id := importStandup(t, p.DB)

	chat.replies = []string{structuredSummary, "No action items found."}
	first, err := Summarize(ctx, p, SummarizeInput{MeetingID: id})
	require.NoError(t, err)
	require.Empty(t, first.ActionList)

	chat.replies = []string{"not json", "A short recap.", "- [Alice] Book the venue"}
	out, err := Summarize(ctx, p, SummarizeInput{MeetingID: id, Regenerate: true})
	require.NoError(t, err)
	require.True(t, out.Generated)
	require.Equal(t, "A short recap.", out.Summary.FullSummary)
	require.Equal(t, []string{"[Alice] Book the venue"}, out.ActionList)
	require.Equal(t, first.CreatedAt, out.CreatedAt)
}

func TestSummarize_ProviderDownStillStores(t *testing.T) {
	ctx := context.Background()
	p, _, chat := newTestPipeline(t)
	id := importStandup(t, p.DB)

	chat.fail = fmt.Errorf("connection refused")
	out, err := Summarize(ctx, p, SummarizeInput{MeetingID: id})
	require.NoError(t, err)
	require.True(t, out.Generated)
	require.NotEmpty(t, out.Summary.KeyPoints)
	require.Empty(t, out.ActionList)
}

func TestSummarize_Errors(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)

	_, err := Summarize(ctx, p, SummarizeInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Summarize(ctx, p, SummarizeInput{MeetingID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	out, err := Import(p.DB, ImportInput{Path: writeTranscriptFile(t, "empty.json", `{"title": "Silent"}`)})
	require.NoError(t, err)
	_, err = Summarize(ctx, p, SummarizeInput{MeetingID: out.ID})
	require.True(t, errors.Is(err, errors.ErrTranscriptUnavailable))
}
