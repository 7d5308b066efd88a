// Package coverage scores discovered requirements against the knowledge base
// and reports the expected requirements that were not found.
package coverage

import (
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/textutil"
)

// DefaultThreshold is the keyword overlap at which a discovered requirement
// matches an expected one.
const DefaultThreshold = 0.6

// Weights are the per-jurisdiction shares of the overall score.
type Weights struct {
	Federal  float64 `yaml:"federal" mapstructure:"federal"`
	State    float64 `yaml:"state" mapstructure:"state"`
	City     float64 `yaml:"city" mapstructure:"city"`
	Industry float64 `yaml:"industry" mapstructure:"industry"`
}

// DefaultWeights returns federal 0.4, state 0.3, city 0.1 and industry 0.2.
func DefaultWeights() Weights {
	return Weights{Federal: 0.4, State: 0.3, City: 0.1, Industry: 0.2}
}

func (w Weights) of(j model.Jurisdiction) float64 {
	switch j {
	case model.JurisdictionFederal:
		return w.Federal
	case model.JurisdictionState:
		return w.State
	case model.JurisdictionCity:
		return w.City
	case model.JurisdictionIndustry:
		return w.Industry
	}
	return 0
}

func (w Weights) total() float64 { return w.Federal + w.State + w.City + w.Industry }

// Config tunes the Analyzer. Zero values select the defaults.
type Config struct {
	Threshold float64
	Weights   Weights
}

// Expectations supplies the requirements a profile is expected to have.
// *knowledge.Base satisfies it.
type Expectations interface {
	Applicable(p model.BusinessProfile) []model.KnowledgeBaseEntry
}

// Analyzer computes coverage reports. It is safe for concurrent use.
type Analyzer struct {
	kb        Expectations
	threshold float64
	weights   Weights
}

// New creates an Analyzer over kb.
func New(kb Expectations, cfg Config) *Analyzer {
	a := &Analyzer{kb: kb, threshold: cfg.Threshold, weights: cfg.Weights}
	if a.threshold <= 0 || a.threshold > 1 {
		a.threshold = DefaultThreshold
	}
	if a.weights.total() <= 0 {
		a.weights = DefaultWeights()
	}
	return a
}

// Analyze scores reqs against the entries applicable to p. The returned gaps
// are also set on the report, most severe first.
func (a *Analyzer) Analyze(reqs []model.Requirement, p model.BusinessProfile) (model.CoverageReport, []model.GapAnalysis) {
	expected := a.kb.Applicable(p)
	names := make([]matchable, len(reqs))
	for i, r := range reqs {
		names[i] = newMatchable(r.Name)
	}

	type tally struct{ found, expected int }
	counts := make(map[model.Jurisdiction]*tally)
	for _, j := range model.AllJurisdictions() {
		counts[j] = &tally{}
	}

	var gaps []model.GapAnalysis
	for _, e := range expected {
		j := e.Jurisdiction()
		t := counts[j]
		t.expected++
		if a.found(e, names) {
			t.found++
			continue
		}
		gaps = append(gaps, gapFor(e))
	}

	// A jurisdiction nothing is expected of counts what was discovered for it.
	for _, r := range reqs {
		if t, ok := counts[r.SourceType]; ok && t.expected == 0 {
			t.found++
		}
	}

	report := model.CoverageReport{
		Jurisdictions:          make(map[model.Jurisdiction]model.JurisdictionCoverage, len(counts)),
		ConfidenceDistribution: Distribution(reqs),
	}
	var weighted float64
	for _, j := range model.AllJurisdictions() {
		t := counts[j]
		c := model.JurisdictionCoverage{Found: t.found, Expected: t.expected, Percentage: percentage(t.found, t.expected)}
		report.Jurisdictions[j] = c
		weighted += a.weights.of(j) * c.Percentage
	}
	report.Industry = report.Jurisdictions[model.JurisdictionIndustry]

	score := weighted / a.weights.total() * ConfidenceMultiplier(report.ConfidenceDistribution)
	report.OverallScore = math.Round(clamp(score)*10) / 10

	slices.SortStableFunc(gaps, func(x, y model.GapAnalysis) int {
		return severityRank(x.Severity) - severityRank(y.Severity)
	})
	report.Gaps = gaps
	report.RiskLevel = Risk(report.OverallScore, gaps)

	metrics.CoverageScore.Observe(report.OverallScore)
	zap.L().Info("coverage: analysis complete",
		zap.Int("expected", len(expected)),
		zap.Int("gaps", len(gaps)),
		zap.Float64("score", report.OverallScore),
		zap.String("risk", string(report.RiskLevel)),
	)
	return report, gaps
}

type matchable struct {
	normalized string
	keywords   map[string]struct{}
}

func newMatchable(s string) matchable {
	return matchable{normalized: textutil.Normalize(s), keywords: textutil.Keywords(s)}
}

func (a *Analyzer) found(e model.KnowledgeBaseEntry, reqs []matchable) bool {
	want := newMatchable(e.Requirement)
	for _, r := range reqs {
		if matches(want, r, a.threshold) {
			return true
		}
	}
	return false
}

// Match reports whether a discovered requirement name satisfies an expected
// requirement: equal after normalization, or keyword overlap of at least
// threshold.
func Match(expected, discovered string, threshold float64) bool {
	return matches(newMatchable(expected), newMatchable(discovered), threshold)
}

func matches(want, have matchable, threshold float64) bool {
	if want.normalized == "" || have.normalized == "" {
		return false
	}
	if want.normalized == have.normalized {
		return true
	}
	return textutil.Jaccard(want.keywords, have.keywords) >= threshold
}

func gapFor(e model.KnowledgeBaseEntry) model.GapAnalysis {
	return model.GapAnalysis{
		Category:               string(e.Jurisdiction()),
		Requirement:            e.Requirement,
		Severity:               GapSeverity(e),
		Penalty:                e.Penalty,
		Description:            e.Description,
		SuggestedSearchIntents: e.SearchIntents,
		ApplicableConditions:   e.Conditions.Describe(),
	}
}

// GapSeverity maps the entry's priority onto a severity, escalating to
// critical when the penalty mentions criminal liability or closure.
func GapSeverity(e model.KnowledgeBaseEntry) model.Severity {
	penalty := strings.ToLower(e.Penalty)
	if strings.Contains(penalty, "criminal") || strings.Contains(penalty, "closure") {
		return model.SeverityCritical
	}
	switch e.Priority {
	case model.PriorityCritical:
		return model.SeverityCritical
	case model.PriorityRequired:
		return model.SeverityHigh
	case model.PriorityRecommended:
		return model.SeverityMedium
	}
	return model.SeverityLow
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 0
	case model.SeverityHigh:
		return 1
	case model.SeverityMedium:
		return 2
	}
	return 3
}

// Risk grades the overall exposure from the score and the gap severities.
func Risk(score float64, gaps []model.GapAnalysis) model.RiskLevel {
	var critical, high int
	for _, g := range gaps {
		switch g.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityHigh:
			high++
		}
	}
	switch {
	case critical > 2 || score < 40:
		return model.RiskCritical
	case critical > 0 || high > 3 || score < 60:
		return model.RiskHigh
	case high > 0 || score < 80:
		return model.RiskMedium
	}
	return model.RiskLow
}

// Distribution counts requirements per confidence level. Unknown levels
// count as medium.
func Distribution(reqs []model.Requirement) model.ConfidenceDistribution {
	var d model.ConfidenceDistribution
	for _, r := range reqs {
		switch r.ConfidenceLevel {
		case model.ConfidenceHigh:
			d.High++
		case model.ConfidenceLow:
			d.Low++
		default:
			d.Medium++
		}
	}
	return d
}

// ConfidenceMultiplier is (high + 0.7 medium + 0.4 low) / total, or 1 when
// there are no requirements.
func ConfidenceMultiplier(d model.ConfidenceDistribution) float64 {
	total := d.High + d.Medium + d.Low
	if total == 0 {
		return 1
	}
	return (float64(d.High) + 0.7*float64(d.Medium) + 0.4*float64(d.Low)) / float64(total)
}

func percentage(found, expected int) float64 {
	if expected == 0 {
		if found > 0 {
			return 100
		}
		return 0
	}
	return clamp(float64(found) / float64(expected) * 100)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
