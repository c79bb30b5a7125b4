package chat

import (
	"fmt"
	"strings"

	"github.com/hweng329/llamagate/domain"
)

// renderSearchPrompt prepends a numbered block of search results to the
// user's original query. Callers only invoke this with a non-empty result
// list; an empty search leaves the prompt untouched.
func renderSearchPrompt(results []domain.SearchResult, query string) string {
	var b strings.Builder
	b.WriteString("Web search results:\n")

	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		}
	}

	b.WriteString("\nBased on the search results above, answer the following question: ")
	b.WriteString(query)
	return b.String()
}
