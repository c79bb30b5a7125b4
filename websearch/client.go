// Package websearch provides the web search client used for prompt
// enrichment. Lookups go through the DuckDuckGo Instant Answer API,
// which requires no API key.
package websearch

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hweng329/llamagate/domain"
)

// Client is the DuckDuckGo search client.
type Client struct {
	searchURL  string
	httpClient *http.Client
}

// NewClient creates a new search client.
func NewClient(searchURL string, timeout time.Duration) *Client {
	return &Client{
		searchURL:  searchURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type instantAnswer struct {
	Heading       string `json:"Heading"`
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to maxResults ranked snippets for the query. Search is
// best-effort: every failure degrades to an empty result list and is never
// surfaced past this boundary.
func (c *Client) Search(ctx context.Context, query string, maxResults int) []domain.SearchResult {
	if maxResults <= 0 {
		return nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("WARN: failed to create search request: %v", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("WARN: web search failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: search API returned status %d", resp.StatusCode)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("WARN: failed to read search response: %v", err)
		return nil
	}

	var answer instantAnswer
	if err := json.Unmarshal(respBody, &answer); err != nil {
		log.Printf("WARN: failed to decode search response: %v", err)
		return nil
	}

	var results []domain.SearchResult

	if answer.Abstract != "" {
		title := answer.Heading
		if title == "" {
			title = "Result"
		}
		results = append(results, domain.SearchResult{
			Title:   title,
			Snippet: answer.Abstract,
			URL:     answer.AbstractURL,
		})
	}

	for _, topic := range answer.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   topicTitle(topic.Text),
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// topicTitle derives a title from a related-topic text, which is usually
// formatted as "Title - description".
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return "Result"
}
