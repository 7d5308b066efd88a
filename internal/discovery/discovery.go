// Package discovery finds candidate compliance source URLs for a business
// profile by running one search per jurisdiction category.
package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

// Config tunes discovery.
type Config struct {
	// ContextSize is passed to the search provider ("low", "medium", "high").
	ContextSize string
	// MaxURLs caps the merged result. Zero means no cap.
	MaxURLs int
	// Timeout bounds each category search.
	Timeout time.Duration
}

// Engine runs the four category searches.
type Engine struct {
	searcher provider.Searcher
	caller   *resilience.Caller
	cfg      Config
}

// New creates an Engine. Searches go through caller.
func New(searcher provider.Searcher, caller *resilience.Caller, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ContextSize == "" {
		cfg.ContextSize = provider.ContextHigh
	}
	return &Engine{searcher: searcher, caller: caller, cfg: cfg}
}

// Discover issues the federal, state, local and industry searches
// concurrently and merges their URLs, deduplicated by exact URL with the
// first occurrence winning. A category that fails contributes nothing;
// an authentication failure aborts discovery.
func (e *Engine) Discover(ctx context.Context, p model.BusinessProfile) ([]model.DiscoveredURL, error) {
	queries := BuildQueries(p)
	tracker := progress.FromContext(ctx)

	categories := make([]string, len(queries))
	for i, q := range queries {
		categories[i] = string(q.Category)
	}
	tracker.Emit(progress.PhaseDiscovery, 0, progress.QueryBuilding{
		Categories: categories,
		Location:   p.Location(),
		Industry:   p.Industry,
	})

	perCategory := make([][]model.DiscoveredURL, len(queries))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			urls, err := e.search(gctx, q)
			if err != nil {
				if resilience.IsAuth(err) {
					return eris.Wrapf(err, "discovery: %s search", q.Category)
				}
				zap.L().Warn("discovery: category search failed",
					zap.String("category", string(q.Category)),
					zap.Error(err),
				)
				urls = nil
			}
			perCategory[i] = urls

			mu.Lock()
			done++
			frac := float64(done) / float64(len(queries))
			mu.Unlock()
			tracker.Emit(progress.PhaseDiscovery, frac*0.9, progress.URLsDiscovered{
				Count:      len(urls),
				ByCategory: map[string]int{string(q.Category): len(urls)},
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(perCategory, e.cfg.MaxURLs)

	byCategory := make(map[string]int)
	for _, u := range merged {
		byCategory[string(u.SourceQueryCategory)]++
	}
	tracker.Emit(progress.PhaseDiscovery, 1, progress.URLsDiscovered{
		Count:      len(merged),
		ByCategory: byCategory,
	})

	zap.L().Info("discovery: complete",
		zap.Int("urls", len(merged)),
		zap.Any("by_category", byCategory),
	)
	return merged, nil
}

// search runs one category query through the caller. Rate-limit exhaustion
// yields no URLs and no error.
func (e *Engine) search(ctx context.Context, q Query) ([]model.DiscoveredURL, error) {
	res, ok, err := resilience.Call(ctx, e.caller, "search", func(ctx context.Context) (*provider.SearchResult, error) {
		ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		return e.searcher.Search(ctx, provider.SearchRequest{
			Prompt:       q.Prompt,
			DomainFilter: q.DomainFilter,
			ContextSize:  e.cfg.ContextSize,
		})
	})
	if err != nil {
		return nil, err
	}
	if !ok || res == nil {
		return nil, nil
	}

	var out []model.DiscoveredURL
	for _, l := range res.URLs {
		out = append(out, model.DiscoveredURL{
			URL:                 strings.TrimSpace(l.URL),
			Title:               strings.TrimSpace(l.Title),
			SourceQueryCategory: q.Category,
		})
	}
	for _, u := range urlsInText(res.Answer) {
		out = append(out, model.DiscoveredURL{URL: u, SourceQueryCategory: q.Category})
	}
	return out, nil
}

// merge flattens per-category results in category order, dropping invalid
// and repeated URLs.
func merge(perCategory [][]model.DiscoveredURL, limit int) []model.DiscoveredURL {
	seen := make(map[string]bool)
	var out []model.DiscoveredURL
	for _, urls := range perCategory {
		for _, u := range urls {
			if !validURL(u.URL) || seen[u.URL] {
				continue
			}
			seen[u.URL] = true
			out = append(out, u)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}
