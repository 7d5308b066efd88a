package model

import "time"

// ScrapedPage is a fetched page with its plain-text rendering and, when the
// provider ran schema-guided extraction, the structured JSON it produced.
type ScrapedPage struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Markdown   string    `json:"markdown"`
	JSON       []byte    `json:"json,omitempty"`
	StatusCode int       `json:"status_code"`
	Source     string    `json:"source,omitempty"` // "firecrawl", "local_http", "jina"
	FetchedAt  time.Time `json:"fetched_at"`
}

// PageCacheEntry stores a cached scrape result.
type PageCacheEntry struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Page      ScrapedPage `json:"page"`
	CachedAt  time.Time   `json:"cached_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}
