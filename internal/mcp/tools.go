package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("meeting_list",
	mcp.WithDescription("List meetings, newest first, with transcript availability and participant counts."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Maximum meetings to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of meetings to skip")),
)

var fetchToolDef = mcp.NewTool("meeting_fetch",
	mcp.WithDescription("Fetch one meeting by ID, optionally with its diarized transcript."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithBoolean("include_transcript", mcp.Description("Include speakers and segments (default true)")),
)

var indexToolDef = mcp.NewTool("meeting_index",
	mcp.WithDescription("Embed a meeting's transcript so it can be searched. Already-indexed meetings are skipped unless force is set."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithBoolean("force", mcp.Description("Delete and rebuild existing vectors")),
)

var askToolDef = mcp.NewTool("meeting_ask",
	mcp.WithDescription("Ask a question about a meeting. The answer is grounded in retrieved transcript snippets and appended to the meeting chat."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("query", mcp.Required(), mcp.Description("Question to answer")),
	mcp.WithNumber("top_k", mcp.Description("Snippets to retrieve (default from config)")),
)

var summarizeToolDef = mcp.NewTool("meeting_summarize",
	mcp.WithDescription("Return the meeting's structured summary and action items, generating them if needed."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithBoolean("regenerate", mcp.Description("Ignore a stored summary and generate a new one")),
)

var historyToolDef = mcp.NewTool("meeting_history",
	mcp.WithDescription("List a meeting's chat messages, oldest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithNumber("limit", mcp.Description("Most recent messages to return (default 50, max 500)")),
)

var updateSpeakerToolDef = mcp.NewTool("meeting_update_speaker",
	mcp.WithDescription("Rename or recolor a speaker, then reindex the meeting."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("speaker_id", mcp.Required(), mcp.Description("Speaker ID within the meeting")),
	mcp.WithString("name", mcp.Description("New display name")),
	mcp.WithString("color", mcp.Description("New display color")),
)

var reassignSegmentToolDef = mcp.NewTool("meeting_reassign_segment",
	mcp.WithDescription("Attribute a transcript segment to another speaker, then reindex the meeting."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("segment_id", mcp.Required(), mcp.Description("Segment ID")),
	mcp.WithString("speaker_id", mcp.Required(), mcp.Description("Speaker ID to attribute the segment to")),
)
