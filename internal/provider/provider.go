// Package provider defines the external collaborators the compliance
// pipeline depends on and adapts the pkg/ HTTP clients to them.
//
// Adapters translate provider status codes into resilience error types:
// 429 becomes *resilience.RateLimitError and 401/403 *resilience.AuthError,
// so the Caller and the pipeline can tell "retry", "abort" and "skip item"
// apart without knowing any wire format.
package provider

import (
	"context"
	"encoding/json"
)

// Context sizes accepted by SearchRequest.ContextSize.
const (
	ContextLow    = "low"
	ContextMedium = "medium"
	ContextHigh   = "high"
)

// SearchRequest is one natural-language search.
type SearchRequest struct {
	Prompt       string
	DomainFilter []string
	ContextSize  string
}

// Link is a single result URL.
type Link struct {
	URL   string
	Title string
}

// SearchResult holds result links and the raw answer text, which may mention
// further URLs.
type SearchResult struct {
	URLs   []Link
	Answer string
}

// Searcher is the search provider.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

// ScrapeOptions tunes one scrape. A nil Schema or MarkdownOnly requests a
// plain-text rendering only.
type ScrapeOptions struct {
	Schema       map[string]any
	Prompt       string
	WaitMs       int
	TimeoutMs    int
	MarkdownOnly bool
}

// ScrapeResult is a fetched page. JSON is set when schema-guided extraction ran.
type ScrapeResult struct {
	URL       string
	Title     string
	PlainText string
	JSON      json.RawMessage
	Success   bool
	Error     string
}

// Scraper is the scrape provider.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts ScrapeOptions) (*ScrapeResult, error)
}

// BatchScraper is the optional multi-URL variant of Scraper. Results are
// returned in input order, one per URL.
type BatchScraper interface {
	ScrapeMany(ctx context.Context, urls []string, opts ScrapeOptions) ([]ScrapeResult, error)
}

// Completer is the classification and extraction LLM. Responses are
// untrusted text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
