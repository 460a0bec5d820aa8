package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/murmur/internal/errors"
	"github.com/hpungsan/murmur/internal/vector"
	"github.com/stretchr/testify/require"
)

// TestMeetingWorkflow exercises the meeting lifecycle:
// import → list → index → index (skipped) → fetch → delete → fetch (not found)
func TestMeetingWorkflow(t *testing.T) {
	ctx := context.Background()
	p, embedder, _ := newTestPipeline(t)

	// 1. Import
	id := importStandup(t, p.DB)

	// 2. List
	listOut, err := List(p.DB, ListInput{})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, id, listOut.Items[0].ID)
	require.Equal(t, 2, listOut.Items[0].Participants)
	require.Equal(t, 1, listOut.Pagination.Total)
	require.False(t, listOut.Pagination.HasMore)

	// 3. Index
	res, err := Index(ctx, p, IndexInput{MeetingID: id})
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, 2, res.Chunks)

	exists, err := p.Index.ExistsByFilter(ctx, vector.Filter{MeetingID: id})
	require.NoError(t, err)
	require.True(t, exists)

	// 4. Index again without force
	callsBefore := embedder.calls
	res, err = Index(ctx, p, IndexInput{MeetingID: id})
	require.NoError(t, err)
	require.True(t, res.Skipped)
	require.Equal(t, callsBefore, embedder.calls)

	// 5. Fetch without transcript
	fetchOut, err := Fetch(p.DB, FetchInput{ID: id, IncludeTranscript: boolPtr(false)})
	require.NoError(t, err)
	require.Nil(t, fetchOut.Transcript)
	require.True(t, fetchOut.TranscriptionAvailable)

	// 6. Delete removes the meeting and its vectors
	delOut, err := Delete(ctx, p, DeleteInput{ID: id})
	require.NoError(t, err)
	require.True(t, delOut.Deleted)

	exists, err = p.Index.ExistsByFilter(ctx, vector.Filter{MeetingID: id})
	require.NoError(t, err)
	require.False(t, exists)

	// 7. Fetch after delete
	_, err = Fetch(p.DB, FetchInput{ID: id})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Delete(ctx, p, DeleteInput{ID: id})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestList_Pagination(t *testing.T) {
	database := openTestDB(t)
	for i := 0; i < 3; i++ {
		importStandup(t, database)
	}

	out, err := List(database, ListInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.True(t, out.Pagination.HasMore)
	require.Equal(t, 3, out.Pagination.Total)

	out, err = List(database, ListInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.False(t, out.Pagination.HasMore)
}

func TestIndex_RequiresTranscript(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	out, err := Import(p.DB, ImportInput{Path: writeTranscriptFile(t, "empty.json", `{"title": "Silent"}`)})
	require.NoError(t, err)

	_, err = Index(context.Background(), p, IndexInput{MeetingID: out.ID})
	require.True(t, errors.Is(err, errors.ErrTranscriptUnavailable), "got %v", err)

	_, err = Index(context.Background(), p, IndexInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
