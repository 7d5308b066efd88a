package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/perplexity"
)

const searchSystemPrompt = "You are a compliance research assistant. Find official government and " +
	"industry sources that describe licensing, registration, tax, employment and safety " +
	"requirements. Prefer primary sources and include the URL of every source you rely on."

// Perplexity adapts a Perplexity client to Searcher.
type Perplexity struct {
	client perplexity.Client
	model  string
}

// NewPerplexity wraps client. An empty model uses the client default.
func NewPerplexity(client perplexity.Client, model string) *Perplexity {
	return &Perplexity{client: client, model: model}
}

// Search runs one chat completion with web search enabled.
func (p *Perplexity) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	creq := perplexity.ChatCompletionRequest{
		Model: p.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		SearchDomainFilter: req.DomainFilter,
	}
	if req.ContextSize != "" {
		creq.WebSearchOptions = &perplexity.WebSearchOptions{SearchContextSize: req.ContextSize}
	}

	resp, err := p.client.ChatCompletion(ctx, creq)
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.ClassifyStatus("perplexity", apiErr.StatusCode, err)
		}
		return nil, eris.Wrap(err, "perplexity: search")
	}
	cost.FromContext(ctx).Search()

	out := &SearchResult{Answer: resp.Content()}
	seen := make(map[string]bool)
	for _, r := range resp.SearchResults {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out.URLs = append(out.URLs, Link{URL: r.URL, Title: r.Title})
	}
	for _, c := range resp.Citations {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out.URLs = append(out.URLs, Link{URL: c})
	}
	return out, nil
}
