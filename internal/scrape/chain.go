// Package scrape turns relevant compliance URLs into requirement records. The
// BatchScraper drives the scrape provider in rate-limited chunks with a
// regex extractor and a plain-text fallback Chain behind it.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Chain tries fetchers in priority order, returning the first success.
type Chain struct {
	matcher  *PathMatcher
	fetchers []Fetcher
}

// NewChain creates a Chain. A nil matcher excludes nothing.
func NewChain(matcher *PathMatcher, fetchers ...Fetcher) *Chain {
	return &Chain{matcher: matcher, fetchers: fetchers}
}

// Len returns the number of fetchers.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fetchers)
}

// Fetch tries each supporting fetcher in order.
func (c *Chain) Fetch(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	if c.matcher != nil && c.matcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded by path matcher: %s", targetURL)
	}

	var lastErr error
	for _, f := range c.fetchers {
		if !f.Supports(targetURL) {
			continue
		}
		page, err := f.Fetch(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("scrape: fetcher failed, trying next",
				zap.String("fetcher", f.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all fetchers failed")
	}
	return nil, eris.Errorf("scrape: no suitable fetcher for url: %s", targetURL)
}
