package model

// TokenUsage tracks token consumption and provider calls for a run.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	SearchQueries       int     `json:"search_queries"`
	ScrapeCredits       int     `json:"scrape_credits"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.SearchQueries += other.SearchQueries
	t.ScrapeCredits += other.ScrapeCredits
	t.Cost += other.Cost
}
