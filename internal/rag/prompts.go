package rag

import "fmt"

const noContextSystemPrompt = "You are an AI assistant. No meeting context was provided."

func meetingSystemPrompt(context string) string {
	return fmt.Sprintf(`You are an AI meeting assistant. Answer only from the meeting context below; if the answer isn't there, say so.

Here's relevant context from the meeting:

%s

Respond professionally with markdown formatting:
# Headings
- Bullet points
1. Numbered lists
**Bold** for emphasis`, context)
}

const summarySystemPrompt = "You are an expert at summarizing meetings with structured output."

func summaryPrompt(transcriptText string) string {
	return fmt.Sprintf(`Analyze this meeting transcript and provide structured output as JSON with these exact fields:
{
  "keyPoints": ["list of 3-5 main topics"],
  "actionItems": [{"assignee": "name", "task": "description", "dueDate": "date if available"}],
  "decisions": ["list of decisions made"],
  "fullSummary": "complete formatted summary text"
}

**Transcript:**
%s`, transcriptText)
}

func fallbackSummaryPrompt(transcriptText string) string {
	return "Summarize this meeting transcript briefly:\n\n" + transcriptText
}

const actionItemsSystemPrompt = "You are an expert at extracting concrete action items from meetings."

// noActionItems is the sentinel the model is told to return when there is nothing to extract.
const noActionItems = "No action items found"

func actionItemsPrompt(transcriptText string) string {
	return fmt.Sprintf(`Extract ALL action items from this meeting transcript.

**Format each as:**
- [Assignee] Action description (Due: date if mentioned)

**Transcript:**
%s

Return ONLY the action items as a bulleted list. If none, return "%s".`, transcriptText, noActionItems)
}
