package scrape

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

// Config tunes the BatchScraper.
type Config struct {
	// ChunkSize is the number of URLs scraped concurrently. Default: 5.
	ChunkSize int
	// ChunkDelay separates consecutive chunks. Default: 1s; negative
	// disables the delay.
	ChunkDelay time.Duration
	// Cooldown precedes the reduced request after rate-limit exhaustion.
	// Default: 10s.
	Cooldown time.Duration
	// WaitMs asks the provider to wait for client-side rendering.
	WaitMs int
	// SchemaTimeout bounds a schema-guided scrape, on top of WaitMs.
	// Default: 30s.
	SchemaTimeout time.Duration
	// PlainTimeout bounds markdown-only and fallback fetches. Default: 20s.
	PlainTimeout time.Duration
	// UseBatch prefers the provider's batch API when it has one.
	UseBatch bool
	// MinTextLen is the plain-text length above which the regex extractor
	// runs. Default: 50.
	MinTextLen int
	// CacheTTL is how long scraped pages stay cached. Default: 24h.
	CacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 5
	}
	if c.ChunkDelay < 0 {
		c.ChunkDelay = 0
	} else if c.ChunkDelay == 0 {
		c.ChunkDelay = time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 10 * time.Second
	}
	if c.SchemaTimeout <= 0 {
		c.SchemaTimeout = 30 * time.Second
	}
	if c.PlainTimeout <= 0 {
		c.PlainTimeout = 20 * time.Second
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 50
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	return c
}

// Option configures optional BatchScraper collaborators.
type Option func(*BatchScraper)

// WithBatch enables the provider's multi-URL API (see Config.UseBatch).
func WithBatch(b provider.BatchScraper) Option {
	return func(s *BatchScraper) { s.batch = b }
}

// WithFallback sets the chain used when the provider fails outright.
func WithFallback(c *Chain) Option {
	return func(s *BatchScraper) { s.fallback = c }
}

// WithCache caches provider pages across runs.
func WithCache(c Cache) Option {
	return func(s *BatchScraper) { s.cache = c }
}

// BatchScraper scrapes classified URLs and extracts requirements from them.
type BatchScraper struct {
	scraper  provider.Scraper
	batch    provider.BatchScraper
	caller   *resilience.Caller
	fallback *Chain
	cache    Cache
	regex    *RegexExtractor
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a BatchScraper. Scrape calls go through caller.
func New(scraper provider.Scraper, caller *resilience.Caller, cfg Config, opts ...Option) *BatchScraper {
	if caller == nil {
		caller = resilience.NewCaller(resilience.CallerConfig{Name: "scrape"})
	}
	s := &BatchScraper{
		scraper: scraper,
		caller:  caller,
		regex:   NewRegexExtractor(),
		cfg:     cfg.withDefaults(),
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// runState is shared by the goroutines of one ScrapeAll call.
type runState struct {
	total int
	done  atomic.Int32
	opts  provider.ScrapeOptions
	key   string

	mu      sync.Mutex
	authErr error
}

// rejected records the first authentication failure of the run.
func (st *runState) rejected(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.authErr == nil {
		st.authErr = err
	}
}

func (st *runState) authFailure() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.authErr
}

// ScrapeAll scrapes urls and returns exactly one result per URL, in input
// order. Chunks run one after another; URLs within a chunk run concurrently
// and never cancel each other. A URL that cannot be scraped yields a result
// with Success false.
//
// The provider rejecting its credentials is not a per-URL failure: no
// further chunks start, the remaining URLs are marked failed and the
// *resilience.AuthError is returned with the results.
func (s *BatchScraper) ScrapeAll(ctx context.Context, urls []model.ClassifiedURL, p model.BusinessProfile) ([]model.BatchScrapeResult, error) {
	results := make([]model.BatchScrapeResult, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	st := &runState{
		total: len(urls),
		opts: provider.ScrapeOptions{
			Schema:    RequirementSchema(),
			Prompt:    ExtractionPrompt(p),
			WaitMs:    s.cfg.WaitMs,
			TimeoutMs: int(s.cfg.SchemaTimeout / time.Millisecond),
		},
		key: profileFingerprint(p),
	}
	useBatch := s.cfg.UseBatch && s.batch != nil

	for start := 0; start < len(urls); start += s.cfg.ChunkSize {
		end := min(start+s.cfg.ChunkSize, len(urls))

		if start > 0 {
			if err := s.sleep(ctx, s.cfg.ChunkDelay); err != nil {
				s.failUnfinished(ctx, urls, results, start, st, err)
				break
			}
		}

		if useBatch {
			err := s.scrapeChunkBatch(ctx, urls, results, start, end, st)
			if err == nil {
				continue
			}
			if resilience.IsAuth(err) {
				st.rejected(err)
			} else {
				useBatch = false
				zap.L().Warn("scrape: batch api failed, using individual requests for the rest of the run",
					zap.Int("chunk_start", start),
					zap.Error(err),
				)
			}
		}

		if st.authFailure() == nil {
			var g errgroup.Group
			for i := start; i < end; i++ {
				if results[i].URL != "" {
					continue
				}
				g.Go(func() error {
					s.progressStart(ctx, urls[i].URL, i, st)
					results[i] = s.scrapeOne(ctx, urls[i], st)
					s.progressDone(ctx, results[i], st)
					return nil
				})
			}
			_ = g.Wait()
		}

		if err := st.authFailure(); err != nil {
			zap.L().Error("scrape: provider rejected credentials, stopping",
				zap.String("service", s.caller.Name()),
				zap.Int("chunk_end", end),
				zap.Int("total", len(urls)),
				zap.Error(err),
			)
			s.failUnfinished(ctx, urls, results, start, st, err)
			return results, err
		}
	}
	return results, nil
}

// scrapeChunkBatch sends the uncached URLs of one chunk through the batch
// API. Cache hits are resolved first; pages the batch could not scrape go to
// the fallback chain. On error no result outside the cache hits is written.
func (s *BatchScraper) scrapeChunkBatch(ctx context.Context, urls []model.ClassifiedURL, results []model.BatchScrapeResult, start, end int, st *runState) error {
	var pending []int
	for i := start; i < end; i++ {
		if res, ok := s.fromCache(ctx, urls[i], st); ok {
			s.progressStart(ctx, urls[i].URL, i, st)
			results[i] = res
			s.progressDone(ctx, res, st)
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return nil
	}

	batchURLs := make([]string, len(pending))
	for j, i := range pending {
		batchURLs[j] = urls[i].URL
	}

	pages, ok, err := resilience.Call(ctx, s.caller, "batch-scrape", func(ctx context.Context) ([]provider.ScrapeResult, error) {
		return s.batch.ScrapeMany(ctx, batchURLs, st.opts)
	})
	if err == nil && !ok {
		err = &resilience.RateLimitError{Provider: s.caller.Name()}
	}
	if err == nil && len(pages) != len(batchURLs) {
		err = eris.Errorf("scrape: batch returned %d results for %d urls", len(pages), len(batchURLs))
	}
	if err != nil {
		return err
	}

	for _, i := range pending {
		s.progressStart(ctx, urls[i].URL, i, st)
	}
	var g errgroup.Group
	for j, i := range pending {
		g.Go(func() error {
			page := pages[j]
			if page.Success {
				s.toCache(ctx, urls[i], &page, st)
				results[i] = s.extract(ctx, urls[i], &page, "schema", st)
			} else {
				results[i] = s.recover(ctx, urls[i], page.Error)
			}
			s.progressDone(ctx, results[i], st)
			return nil
		})
	}
	return g.Wait()
}

// scrapeOne runs the per-URL ladder: cache, schema-guided scrape, then on
// rate-limit exhaustion a cooldown and one reduced request, then the
// fallback chain.
func (s *BatchScraper) scrapeOne(ctx context.Context, u model.ClassifiedURL, st *runState) model.BatchScrapeResult {
	if res, ok := s.fromCache(ctx, u, st); ok {
		return res
	}

	timeout := s.cfg.SchemaTimeout + time.Duration(s.cfg.WaitMs)*time.Millisecond
	page, ok, err := resilience.Call(ctx, s.caller, "scrape", func(ctx context.Context) (*provider.ScrapeResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return s.scraper.Scrape(callCtx, u.URL, st.opts)
	})
	switch {
	case resilience.IsAuth(err):
		st.rejected(err)
		return failed(u.URL, err.Error())
	case err != nil:
		zap.L().Debug("scrape: provider failed", zap.String("url", u.URL), zap.Error(err))
		return s.recover(ctx, u, err.Error())
	case !ok:
		return s.reduced(ctx, u, st)
	case page == nil || !page.Success:
		reason := "scrape unsuccessful"
		if page != nil && page.Error != "" {
			reason = page.Error
		}
		return s.recover(ctx, u, reason)
	}

	s.toCache(ctx, u, page, st)
	return s.extract(ctx, u, page, "schema", st)
}

// reduced waits out the provider's rate limit and makes one markdown-only
// request. The request still takes a slot and quota from the caller but is
// not retried.
func (s *BatchScraper) reduced(ctx context.Context, u model.ClassifiedURL, st *runState) model.BatchScrapeResult {
	zap.L().Info("scrape: rate limited, retrying once without schema",
		zap.String("url", u.URL),
		zap.Duration("cooldown", s.cfg.Cooldown),
	)
	if err := s.sleep(ctx, s.cfg.Cooldown); err != nil {
		return failed(u.URL, err.Error())
	}

	opts := provider.ScrapeOptions{
		MarkdownOnly: true,
		WaitMs:       st.opts.WaitMs,
		TimeoutMs:    int(s.cfg.PlainTimeout / time.Millisecond),
	}
	page, ok, err := resilience.CallOnce(ctx, s.caller, "scrape-reduced", func(ctx context.Context) (*provider.ScrapeResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.PlainTimeout)
		defer cancel()
		return s.scraper.Scrape(callCtx, u.URL, opts)
	})
	if resilience.IsAuth(err) {
		st.rejected(err)
		return failed(u.URL, err.Error())
	}
	if err != nil || !ok || page == nil || !page.Success {
		reason := "rate limited"
		if err != nil {
			reason = err.Error()
		}
		return s.recover(ctx, u, reason)
	}
	return s.extract(ctx, u, page, "reduced", st)
}

// recover fetches plain text through the fallback chain and runs the regex
// extractor on it.
func (s *BatchScraper) recover(ctx context.Context, u model.ClassifiedURL, reason string) model.BatchScrapeResult {
	if s.fallback.Len() == 0 {
		metrics.ScrapeResults.WithLabelValues("failed").Inc()
		return failed(u.URL, reason)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.PlainTimeout)
	defer cancel()
	page, err := s.fallback.Fetch(fetchCtx, u.URL)
	if err != nil {
		metrics.ScrapeResults.WithLabelValues("failed").Inc()
		return failed(u.URL, reason+"; "+err.Error())
	}

	ref := pageRef{URL: u.URL, Title: page.Title, Category: u.Category}
	reqs := s.regexReqs(page.Markdown, ref)
	metrics.ScrapeResults.WithLabelValues("fallback").Inc()
	return model.BatchScrapeResult{URL: u.URL, Success: true, Requirements: reqs}
}

// extract turns a provider page into requirements: validated structured
// output first, the regex extractor when that is empty.
func (s *BatchScraper) extract(_ context.Context, u model.ClassifiedURL, page *provider.ScrapeResult, extraction string, st *runState) model.BatchScrapeResult {
	ref := pageRef{URL: u.URL, Title: page.Title, Category: u.Category}

	var reqs []model.Requirement
	if len(page.JSON) > 0 {
		var err error
		reqs, err = decodeStructured(page.JSON, ref)
		if err != nil {
			zap.L().Debug("scrape: discarding structured extraction",
				zap.String("url", u.URL), zap.Error(err))
		}
	}

	outcome := extraction
	if len(reqs) == 0 {
		reqs = s.regexReqs(page.PlainText, ref)
		switch {
		case len(reqs) == 0:
			outcome = "empty"
		case extraction == "reduced":
			for i := range reqs {
				reqs[i].Metadata.Extraction = "reduced"
			}
		default:
			outcome = "regex"
		}
	}
	metrics.ScrapeResults.WithLabelValues(outcome).Inc()
	return model.BatchScrapeResult{URL: u.URL, Success: true, Requirements: reqs}
}

func (s *BatchScraper) regexReqs(text string, ref pageRef) []model.Requirement {
	if len(strings.TrimSpace(text)) <= s.cfg.MinTextLen {
		return nil
	}
	return s.regex.Extract(text, ref)
}

func (s *BatchScraper) fromCache(ctx context.Context, u model.ClassifiedURL, st *runState) (model.BatchScrapeResult, bool) {
	if s.cache == nil {
		return model.BatchScrapeResult{}, false
	}
	entry, err := s.cache.GetPage(ctx, CacheKey(u.URL, st.key))
	if err != nil {
		zap.L().Debug("scrape: cache lookup failed", zap.String("url", u.URL), zap.Error(err))
		return model.BatchScrapeResult{}, false
	}
	if entry == nil {
		return model.BatchScrapeResult{}, false
	}
	metrics.ScrapeResults.WithLabelValues("cache").Inc()
	page := &provider.ScrapeResult{
		URL:       entry.Page.URL,
		Title:     entry.Page.Title,
		PlainText: entry.Page.Markdown,
		JSON:      entry.Page.JSON,
		Success:   true,
	}
	return s.extract(ctx, u, page, "schema", st), true
}

func (s *BatchScraper) toCache(ctx context.Context, u model.ClassifiedURL, page *provider.ScrapeResult, st *runState) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetPage(ctx, CacheKey(u.URL, st.key), model.ScrapedPage{
		URL:        u.URL,
		Title:      page.Title,
		Markdown:   page.PlainText,
		JSON:       page.JSON,
		StatusCode: 200,
		Source:     "provider",
		FetchedAt:  time.Now().UTC(),
	}, s.cfg.CacheTTL)
	if err != nil {
		zap.L().Warn("scrape: cache write failed", zap.String("url", u.URL), zap.Error(err))
	}
}

// failUnfinished marks every URL from start on that has no result yet.
func (s *BatchScraper) failUnfinished(ctx context.Context, urls []model.ClassifiedURL, results []model.BatchScrapeResult, start int, st *runState, err error) {
	for i := start; i < len(urls); i++ {
		if results[i].URL != "" {
			continue
		}
		results[i] = failed(urls[i].URL, err.Error())
		s.progressDone(ctx, results[i], st)
	}
}

func (s *BatchScraper) progressStart(ctx context.Context, url string, i int, st *runState) {
	progress.FromContext(ctx).Emit(progress.PhaseScraping, float64(st.done.Load())/float64(st.total),
		progress.ScrapingSite{URL: url, Index: i + 1, Total: st.total})
}

func (s *BatchScraper) progressDone(ctx context.Context, res model.BatchScrapeResult, st *runState) {
	done := int(st.done.Add(1))
	frac := float64(done) / float64(st.total)
	var ev progress.Event
	if res.Success {
		ev = progress.SiteComplete{URL: res.URL, Requirements: len(res.Requirements), Done: done, Total: st.total}
	} else {
		ev = progress.SiteFailed{URL: res.URL, Error: res.Error, Done: done, Total: st.total}
	}
	progress.FromContext(ctx).Emit(progress.PhaseScraping, frac, ev)
}

func failed(url, reason string) model.BatchScrapeResult {
	return model.BatchScrapeResult{URL: url, Success: false, Error: reason}
}

// CacheKey identifies a page scraped for a given profile fingerprint. The
// extraction prompt depends on the profile, so the same URL caches
// separately per profile.
func CacheKey(url, fingerprint string) string {
	sum := sha256.Sum256([]byte(url + "\x00" + fingerprint))
	return hex.EncodeToString(sum[:])
}

// profileFingerprint covers the profile fields the extraction prompt uses.
func profileFingerprint(p model.BusinessProfile) string {
	return strings.ToLower(strings.Join([]string{
		p.StateCode(),
		strings.TrimSpace(p.City),
		strings.TrimSpace(p.Industry),
		p.NAICSCode,
		fmt.Sprint(p.EmployeeCount),
	}, "|"))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
