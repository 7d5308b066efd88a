package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/jina"
)

// JinaSearch adapts Jina Search to Searcher. It has no answer text and
// ignores ContextSize.
type JinaSearch struct {
	client jina.Client
}

// NewJinaSearch wraps client.
func NewJinaSearch(client jina.Client) *JinaSearch {
	return &JinaSearch{client: client}
}

// Search runs the prompt as a keyword query, restricted to DomainFilter.
func (j *JinaSearch) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	var opts []jina.SearchOption
	if len(req.DomainFilter) > 0 {
		opts = append(opts, jina.WithSiteFilter(req.DomainFilter...))
	}

	resp, err := j.client.Search(ctx, req.Prompt, opts...)
	if err != nil {
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.ClassifyStatus("jina", apiErr.StatusCode, err)
		}
		return nil, eris.Wrap(err, "jina: search")
	}

	out := &SearchResult{}
	for _, r := range resp.Data {
		if r.URL == "" {
			continue
		}
		out.URLs = append(out.URLs, Link{URL: r.URL, Title: r.Title})
	}
	return out, nil
}
