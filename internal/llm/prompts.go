package llm

import "fmt"

const systemPrompt = `You are a personal memory assistant. You receive a selection of the ` +
	`user's past notes, weighted by relevance, and help them act on what they recorded.`

// SuggestionPrompt builds the prompt for a generation-backed suggestion.
// The context block holds the selected memories, most relevant first.
func SuggestionPrompt(query, contextText string) string {
	return fmt.Sprintf(`Here are the user's most relevant memory entries, one per paragraph, most relevant first:

%s

The user asks: %s

Using only what the entries support, write a short suggestion or answer.
When an entry is directly relevant, restate it as its own paragraph, then add your synthesis as separate paragraphs.
If the entries contain nothing useful, reply with an empty response.`, contextText, query)
}
