package pipeline

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/aggregate"
	"github.com/sells-group/compliance-cli/internal/classify"
	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/coverage"
	"github.com/sells-group/compliance-cli/internal/discovery"
	"github.com/sells-group/compliance-cli/internal/knowledge"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/internal/scrape"
	"github.com/sells-group/compliance-cli/internal/store"
	"github.com/sells-group/compliance-cli/pkg/anthropic"
	"github.com/sells-group/compliance-cli/pkg/firecrawl"
	"github.com/sells-group/compliance-cli/pkg/jina"
	"github.com/sells-group/compliance-cli/pkg/perplexity"
)

// Built is a Pipeline wired from configuration together with the shared
// resources it owns.
type Built struct {
	*Pipeline
	Knowledge *knowledge.Base
	Cache     store.PageCache
}

// Close releases the page cache.
func (b *Built) Close() error {
	if b == nil || b.Cache == nil {
		return nil
	}
	return b.Cache.Close()
}

// Build constructs the provider clients, callers, cache and stages described
// by cfg. Missing provider keys fail with ErrMissingCredentials.
func Build(ctx context.Context, cfg *config.Config) (*Built, error) {
	if err := cfg.Validate("check"); err != nil {
		return nil, err
	}

	kb, err := knowledge.LoadFile(cfg.Knowledge.Path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load knowledge base")
	}

	cache, err := store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Pool:   store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: open page cache")
	}

	callers := resilience.NewRegistry(
		callerConfig(resilience.ProviderSearch, cfg.Limits.Search),
		callerConfig(resilience.ProviderScrape, cfg.Limits.Scrape),
		callerConfig(resilience.ProviderLLM, cfg.Limits.LLM),
	)

	var jinaClient jina.Client
	if cfg.Jina.Key != "" {
		jinaClient = jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
		)
	}

	var searcher provider.Searcher
	if cfg.Discovery.Provider == "jina" {
		searcher = provider.NewJinaSearch(jinaClient)
	} else {
		pplx := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		searcher = provider.NewPerplexity(pplx, cfg.Perplexity.Model)
	}

	var pollOpts []firecrawl.PollOption
	if cfg.Firecrawl.PollTimeoutSecs > 0 {
		pollOpts = append(pollOpts, firecrawl.WithPollTimeout(seconds(cfg.Firecrawl.PollTimeoutSecs)))
	}
	if cfg.Firecrawl.PollIntervalSecs > 0 {
		pollOpts = append(pollOpts, firecrawl.WithPollInterval(seconds(cfg.Firecrawl.PollIntervalSecs)))
	}
	fc := provider.NewFirecrawl(
		firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
		pollOpts...,
	)

	var aiOpts []anthropic.Option
	if cfg.Anthropic.BaseURL != "" {
		aiOpts = append(aiOpts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	claude := provider.NewClaude(anthropic.NewClient(cfg.Anthropic.Key, aiOpts...), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	var fetchers []scrape.Fetcher
	if cfg.Scrape.LocalFallback {
		fetchers = append(fetchers, scrape.NewLocalFetcher(nil))
	}
	if cfg.Scrape.JinaFallback && jinaClient != nil {
		fetchers = append(fetchers, scrape.NewJinaFetcher(jinaClient))
	}
	scrapeOpts := []scrape.Option{scrape.WithCache(cache)}
	if len(fetchers) > 0 {
		scrapeOpts = append(scrapeOpts, scrape.WithFallback(scrape.NewChain(scrape.NewPathMatcher(cfg.Scrape.ExcludePaths), fetchers...)))
	}
	if cfg.Scrape.UseBatch {
		scrapeOpts = append(scrapeOpts, scrape.WithBatch(fc))
	}

	var dedupLLM provider.Completer
	if cfg.Aggregate.Semantic {
		dedupLLM = claude
	}

	llmCaller := callers.Get(resilience.ProviderLLM)
	p, err := New(Stages{
		Discovery: discovery.New(searcher, callers.Get(resilience.ProviderSearch), discovery.Config{
			ContextSize: cfg.Discovery.ContextSize,
			MaxURLs:     cfg.Discovery.MaxURLs,
			Timeout:     seconds(cfg.Discovery.TimeoutSecs),
		}),
		URLs:         classify.NewURLClassifier(claude, llmCaller),
		Scraper:      scrape.New(fc, callers.Get(resilience.ProviderScrape), ScrapeConfig(cfg.Scrape), scrapeOpts...),
		Requirements: classify.NewRequirementClassifier(claude, llmCaller, cfg.Classify.BatchSize),
		Aggregator:   aggregate.New(dedupLLM, llmCaller),
		Coverage:     coverage.New(kb, CoverageConfig(cfg.Coverage)),
	}, WithCalculator(cost.NewCalculator(Rates(cfg.Pricing))))
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	zap.L().Debug("pipeline: built",
		zap.String("search", cfg.Discovery.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Int("fallback_fetchers", len(fetchers)),
		zap.Int("knowledge_entries", kb.Len()),
	)
	return &Built{Pipeline: p, Knowledge: kb, Cache: cache}, nil
}

func callerConfig(name string, l config.ProviderLimits) resilience.CallerConfig {
	cc := resilience.FromLimits(name, l.MaxConcurrent, l.RequestsPerMinute, l.MaxRetries, l.BaseDelayMs)
	cc.Breaker = resilience.FromCircuitConfig(l.CircuitThreshold, l.CircuitResetSecs)
	return cc
}

// ScrapeConfig converts scrape settings. Zero values keep the scraper
// defaults; a negative chunk delay disables it.
func ScrapeConfig(c config.ScrapeConfig) scrape.Config {
	return scrape.Config{
		ChunkSize:     c.ChunkSize,
		ChunkDelay:    time.Duration(c.ChunkDelayMs) * time.Millisecond,
		Cooldown:      seconds(c.CooldownSecs),
		WaitMs:        c.WaitMs,
		SchemaTimeout: seconds(c.SchemaTimeoutSecs),
		PlainTimeout:  seconds(c.PlainTimeoutSecs),
		UseBatch:      c.UseBatch,
		MinTextLen:    c.MinTextLen,
		CacheTTL:      time.Duration(c.CacheTTLHours) * time.Hour,
	}
}

// CoverageConfig converts coverage settings.
func CoverageConfig(c config.CoverageConfig) coverage.Config {
	return coverage.Config{
		Threshold: c.Threshold,
		Weights: coverage.Weights{
			Federal:  c.Weights.Federal,
			State:    c.Weights.State,
			City:     c.Weights.City,
			Industry: c.Weights.Industry,
		},
	}
}

// Rates overlays configured pricing on the default rates.
func Rates(p config.PricingConfig) cost.Rates {
	r := cost.DefaultRates()
	for id, m := range p.Anthropic {
		r.Anthropic[id] = cost.ModelRate{
			Input:         m.Input,
			Output:        m.Output,
			CacheWriteMul: m.CacheWriteMul,
			CacheReadMul:  m.CacheReadMul,
		}
	}
	if p.Jina.PerMTok > 0 {
		r.Jina.PerMTok = p.Jina.PerMTok
	}
	if p.Perplexity.PerQuery > 0 {
		r.Perplexity.PerQuery = p.Perplexity.PerQuery
	}
	if p.Firecrawl.PlanMonthly > 0 {
		r.Firecrawl.PlanMonthly = p.Firecrawl.PlanMonthly
	}
	if p.Firecrawl.CreditsIncluded > 0 {
		r.Firecrawl.CreditsIncluded = p.Firecrawl.CreditsIncluded
	}
	return r
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
