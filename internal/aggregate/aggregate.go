package aggregate

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/llmjson"
	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

type mergeGroup struct {
	Keep  *int  `json:"keep"`
	Merge []int `json:"merge"`
}

// Aggregator merges scrape results: exact-key deduplication across every
// source, then LLM-assisted semantic deduplication within each jurisdiction.
type Aggregator struct {
	llm    provider.Completer
	caller *resilience.Caller
}

// New creates an Aggregator. A nil llm disables semantic deduplication.
func New(llm provider.Completer, caller *resilience.Caller) *Aggregator {
	if caller == nil {
		caller = resilience.NewCaller(resilience.CallerConfig{Name: "llm"})
	}
	return &Aggregator{llm: llm, caller: caller}
}

// Aggregate flattens the successful results and deduplicates them. Semantic
// deduplication only ever narrows a jurisdiction's records; when it fails for
// a jurisdiction that group passes through unchanged. The output is ordered
// by jurisdiction, then name.
func (a *Aggregator) Aggregate(ctx context.Context, results []model.BatchScrapeResult, p model.BusinessProfile) []model.Requirement {
	var all []model.Requirement
	for _, r := range results {
		if r.Success {
			all = append(all, r.Requirements...)
		}
	}

	exact := DedupExact(all)
	tracker := progress.FromContext(ctx)
	tracker.Emit(progress.PhaseProcessing, 0.2, progress.AggregationComplete{Before: len(all), After: len(exact)})

	if a.llm == nil {
		sortRequirements(exact)
		return exact
	}

	groups := groupByJurisdiction(exact)
	merged := make([][]model.Requirement, len(groups))
	fellBack := make([]bool, len(groups))

	var g errgroup.Group
	for i, grp := range groups {
		g.Go(func() error {
			merged[i], fellBack[i] = a.semantic(ctx, grp.jurisdiction, grp.reqs, p)
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Requirement
	fallbacks := 0
	for i := range groups {
		out = append(out, merged[i]...)
		if fellBack[i] {
			fallbacks++
		}
	}
	sortRequirements(out)

	tracker.Emit(progress.PhaseProcessing, 0.5, progress.AIDeduplicationComplete{
		Before:    len(exact),
		After:     len(out),
		Fallbacks: fallbacks,
	})
	zap.L().Info("aggregate: deduplication complete",
		zap.Int("extracted", len(all)),
		zap.Int("after_exact", len(exact)),
		zap.Int("after_semantic", len(out)),
		zap.Int("fallback_groups", fallbacks),
	)
	return out
}

// semantic runs one jurisdiction through the LLM. The bool reports that the
// group was returned unchanged because the LLM answer was unusable.
func (a *Aggregator) semantic(ctx context.Context, j model.Jurisdiction, reqs []model.Requirement, p model.BusinessProfile) ([]model.Requirement, bool) {
	if len(reqs) < 2 {
		return reqs, false
	}

	unchanged := func(reason string, fields ...zap.Field) ([]model.Requirement, bool) {
		metrics.LLMFallbacks.WithLabelValues("semantic_dedup").Inc()
		zap.L().Warn("aggregate: "+reason+", keeping exact-dedup result",
			append(fields, zap.String("jurisdiction", string(j)))...)
		return reqs, true
	}

	text, ok, err := resilience.Call(ctx, a.caller, "semantic-dedup", func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, semanticPrompt(j, reqs, p))
	})
	if err != nil {
		return unchanged("semantic dedup failed", zap.Error(err))
	}
	if !ok {
		return unchanged("semantic dedup rate limited")
	}

	plan, parsed := llmjson.ParseOr(text, func() []mergeGroup { return nil })
	if !parsed {
		return unchanged("unparseable semantic dedup response", zap.Int("response_len", len(text)))
	}

	out := applyPlan(reqs, plan)
	if len(out) == 0 {
		return unchanged("semantic dedup dropped every requirement")
	}
	return out, false
}

// applyPlan builds the surviving records from the LLM's merge plan. Indices
// outside reqs, or already used by an earlier group, are ignored.
func applyPlan(reqs []model.Requirement, plan []mergeGroup) []model.Requirement {
	used := make([]bool, len(reqs))
	valid := func(i int) bool { return i >= 0 && i < len(reqs) && !used[i] }

	var out []model.Requirement
	for _, grp := range plan {
		if grp.Keep == nil || !valid(*grp.Keep) {
			continue
		}
		used[*grp.Keep] = true
		kept := reqs[*grp.Keep]
		for _, m := range grp.Merge {
			if !valid(m) {
				continue
			}
			used[m] = true
			mergeInto(&kept, reqs[m])
		}
		out = append(out, kept)
	}
	return out
}

type jurisdictionGroup struct {
	jurisdiction model.Jurisdiction
	reqs         []model.Requirement
}

// groupByJurisdiction partitions reqs by SourceType. Known jurisdictions
// come first in report order; anything else follows in first-seen order.
func groupByJurisdiction(reqs []model.Requirement) []jurisdictionGroup {
	byJ := make(map[model.Jurisdiction][]model.Requirement)
	var extra []model.Jurisdiction
	for _, r := range reqs {
		if _, ok := byJ[r.SourceType]; !ok && !r.SourceType.Valid() {
			extra = append(extra, r.SourceType)
		}
		byJ[r.SourceType] = append(byJ[r.SourceType], r)
	}

	var groups []jurisdictionGroup
	for _, j := range append(model.AllJurisdictions(), extra...) {
		if len(byJ[j]) > 0 {
			groups = append(groups, jurisdictionGroup{jurisdiction: j, reqs: byJ[j]})
		}
	}
	return groups
}

func jurisdictionRank(j model.Jurisdiction) int {
	if i := slices.Index(model.AllJurisdictions(), j); i >= 0 {
		return i
	}
	return len(model.AllJurisdictions())
}

func sortRequirements(reqs []model.Requirement) {
	slices.SortStableFunc(reqs, func(a, b model.Requirement) int {
		return cmp.Or(
			cmp.Compare(jurisdictionRank(a.SourceType), jurisdictionRank(b.SourceType)),
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})
}
