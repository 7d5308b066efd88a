// Package pipeline runs a compliance check end to end: discovery, URL
// relevance filtering, scraping, requirement classification, deduplication,
// coverage analysis and recommendations.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/classify"
	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/recommend"
)

// Fatal run errors. Run wraps them, so test with errors.Is.
var (
	ErrNoURLs             = eris.New("no relevant compliance URLs found")
	ErrInvalidProfile     = eris.New("invalid business profile")
	ErrMissingCredentials = config.ErrMissingCredentials
)

// Discoverer finds candidate URLs. *discovery.Engine satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, p model.BusinessProfile) ([]model.DiscoveredURL, error)
}

// URLFilter tags discovered URLs with a jurisdiction and relevance.
// *classify.URLClassifier satisfies it.
type URLFilter interface {
	Classify(ctx context.Context, urls []model.DiscoveredURL, p model.BusinessProfile) ([]model.ClassifiedURL, bool, error)
}

// Scraper scrapes relevant URLs. Per-URL failures are reported in the
// results; an error means the run cannot continue (for example rejected
// credentials). *scrape.BatchScraper satisfies it.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []model.ClassifiedURL, p model.BusinessProfile) ([]model.BatchScrapeResult, error)
}

// SourceTyper assigns source types to extracted requirements.
// *classify.RequirementClassifier satisfies it.
type SourceTyper interface {
	Classify(ctx context.Context, reqs []model.Requirement, p model.BusinessProfile) ([]model.Requirement, error)
}

// Deduplicator merges scrape results into one requirement list.
// *aggregate.Aggregator satisfies it.
type Deduplicator interface {
	Aggregate(ctx context.Context, results []model.BatchScrapeResult, p model.BusinessProfile) []model.Requirement
}

// Analyzer scores requirements against the knowledge base.
// *coverage.Analyzer satisfies it.
type Analyzer interface {
	Analyze(reqs []model.Requirement, p model.BusinessProfile) (model.CoverageReport, []model.GapAnalysis)
}

// Stages holds the pipeline components. Discovery, Scraper, Aggregator and
// Coverage are required; URLs and Requirements fall back to the
// deterministic classifiers when nil.
type Stages struct {
	Discovery    Discoverer
	URLs         URLFilter
	Scraper      Scraper
	Requirements SourceTyper
	Aggregator   Deduplicator
	Coverage     Analyzer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCalculator prices provider usage for each run.
func WithCalculator(c *cost.Calculator) Option {
	return func(p *Pipeline) { p.calc = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// Pipeline orchestrates a compliance check. It is safe for concurrent use
// when its stages are.
type Pipeline struct {
	stages Stages
	calc   *cost.Calculator
	now    func() time.Time
	newID  func() string
}

// New creates a Pipeline.
func New(stages Stages, opts ...Option) (*Pipeline, error) {
	if stages.Discovery == nil || stages.Scraper == nil {
		return nil, eris.Wrap(ErrMissingCredentials, "pipeline: discovery and scraping providers are required")
	}
	if stages.Aggregator == nil || stages.Coverage == nil {
		return nil, eris.New("pipeline: aggregator and coverage analyzer are required")
	}
	p := &Pipeline{
		stages: stages,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Run executes a compliance check for profile and reports progress to sink.
// A fatal error (invalid profile, authentication failure, no relevant URLs,
// cancellation) returns (nil, err) so that "could not look" is never
// reported as "found nothing". Non-fatal failures degrade the result.
func (p *Pipeline) Run(ctx context.Context, profile model.BusinessProfile, sink progress.Sink) (*model.Result, error) {
	start := p.now()
	runID := p.newID()
	tracker := progress.NewTracker(runID, sink)
	meter := cost.NewMeter(p.calc)
	ctx = progress.WithTracker(ctx, tracker)
	ctx = cost.WithMeter(ctx, meter)

	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("location", profile.Location()),
		zap.String("industry", profile.Industry),
	)
	log.Info("pipeline: starting compliance check")

	fail := func(err error) (*model.Result, error) {
		metrics.Runs.WithLabelValues("error").Inc()
		tracker.Fail(err, true)
		log.Error("pipeline: run failed", zap.Error(err))
		return nil, err
	}

	if err := profile.Validate(); err != nil {
		return fail(eris.Wrapf(ErrInvalidProfile, "pipeline: %v", err))
	}

	// Discovery
	discovered, err := p.stages.Discovery.Discover(ctx, profile)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: discover"))
	}

	// Filtering
	classified, fallback, err := p.classifyURLs(ctx, discovered, profile)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: classify urls"))
	}
	relevant := classify.Relevant(classified)
	tracker.Emit(progress.PhaseFiltering, 1, progress.URLsFiltered{
		Relevant: len(relevant),
		Total:    len(discovered),
		Fallback: fallback,
	})
	if len(relevant) == 0 {
		return fail(eris.Wrapf(ErrNoURLs, "pipeline: %d discovered", len(discovered)))
	}

	// Scraping
	results, err := p.stages.Scraper.ScrapeAll(ctx, relevant, profile)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: scrape"))
	}
	scraped, failed := 0, 0
	for _, r := range results {
		if r.Success {
			scraped++
		} else {
			failed++
		}
	}

	// Processing
	results, err = p.classifyRequirements(ctx, results, profile)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: classify requirements"))
	}
	reqs := p.stages.Aggregator.Aggregate(ctx, results, profile)
	if err := ctx.Err(); err != nil {
		return fail(eris.Wrap(err, "pipeline: aggregate"))
	}

	report, gaps := p.stages.Coverage.Analyze(reqs, profile)
	recs := recommend.Build(report, gaps, reqs)
	report.Recommendations = recommend.Summaries(recs)

	res := &model.Result{
		RunID:           runID,
		Profile:         profile,
		Requirements:    reqs,
		Coverage:        report,
		Gaps:            gaps,
		Recommendations: recs,
		Statistics:      model.CountRequirements(reqs),
		URLsDiscovered:  len(discovered),
		URLsScraped:     scraped,
		URLsFailed:      failed,
		Usage:           meter.Usage(),
		Duration:        p.now().Sub(start),
	}

	metrics.Runs.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())
	tracker.Complete(progress.Complete{
		RunID:        runID,
		Requirements: len(reqs),
		Gaps:         len(gaps),
		OverallScore: report.OverallScore,
		RiskLevel:    string(report.RiskLevel),
	})
	log.Info("pipeline: compliance check complete",
		zap.Int("urls_discovered", res.URLsDiscovered),
		zap.Int("urls_scraped", scraped),
		zap.Int("urls_failed", failed),
		zap.Int("requirements", len(reqs)),
		zap.Int("gaps", len(gaps)),
		zap.Float64("score", report.OverallScore),
		zap.String("risk", string(report.RiskLevel)),
		zap.Float64("cost_usd", res.Usage.Cost),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) classifyURLs(ctx context.Context, urls []model.DiscoveredURL, profile model.BusinessProfile) ([]model.ClassifiedURL, bool, error) {
	if len(urls) == 0 {
		return nil, false, nil
	}
	if p.stages.URLs == nil {
		return classify.FallbackURLs(urls), true, nil
	}
	return p.stages.URLs.Classify(ctx, urls, profile)
}

// classifyRequirements sets the source type of every extracted requirement,
// classifying all pages in one pass and writing the answers back per page.
func (p *Pipeline) classifyRequirements(ctx context.Context, results []model.BatchScrapeResult, profile model.BusinessProfile) ([]model.BatchScrapeResult, error) {
	var flat []model.Requirement
	for _, r := range results {
		if r.Success {
			flat = append(flat, r.Requirements...)
		}
	}
	if len(flat) == 0 {
		return results, nil
	}

	var typed []model.Requirement
	if p.stages.Requirements == nil {
		typed = make([]model.Requirement, len(flat))
		for i, r := range flat {
			j := classify.InferSourceType(r)
			r.SourceType = j
			r.Metadata.Jurisdiction = j
			typed[i] = r
		}
	} else {
		var err error
		typed, err = p.stages.Requirements.Classify(ctx, flat, profile)
		if err != nil {
			return nil, err
		}
		if len(typed) != len(flat) {
			return nil, eris.Errorf("pipeline: classifier returned %d requirements for %d", len(typed), len(flat))
		}
	}

	out := make([]model.BatchScrapeResult, len(results))
	next := 0
	for i, r := range results {
		out[i] = r
		if !r.Success || len(r.Requirements) == 0 {
			continue
		}
		n := len(r.Requirements)
		out[i].Requirements = typed[next : next+n : next+n]
		next += n
	}
	return out, nil
}
