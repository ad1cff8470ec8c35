package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt joins the retrieved texts (already ordered best match first)
// ahead of the user question. Shared by every provider so a fallback answers
// from the same prompt.
func BuildPrompt(query string, contextTexts []string) string {
	return fmt.Sprintf("Context:\n%s\n\nUser Question: %s", strings.Join(contextTexts, "\n"), query)
}
