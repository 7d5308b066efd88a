// Package recommend turns a coverage report into a prioritized action list.
package recommend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

const (
	// LowCoverage is the jurisdiction percentage below which more research
	// is recommended.
	LowCoverage = 50.0
	// MaxDeadlines caps the deadline reminders.
	MaxDeadlines = 10
)

// Build returns recommendations most urgent first: critical and high gaps,
// then discovered requirements with deadlines, then jurisdictions with low
// coverage. Actions are unique.
func Build(report model.CoverageReport, gaps []model.GapAnalysis, reqs []model.Requirement) []model.Recommendation {
	var out []model.Recommendation

	for _, g := range gaps {
		switch g.Severity {
		case model.SeverityCritical:
			out = append(out, model.Recommendation{
				Priority: model.SeverityCritical,
				Action:   "Address immediately: " + g.Requirement,
				Reason:   gapReason(g),
			})
		case model.SeverityHigh:
			out = append(out, model.Recommendation{
				Priority: model.SeverityHigh,
				Action:   "Confirm compliance with " + g.Requirement,
				Reason:   gapReason(g),
			})
		}
	}

	deadlines := 0
	for _, r := range reqs {
		if deadlines == MaxDeadlines {
			break
		}
		if strings.TrimSpace(r.Deadline) == "" || strings.TrimSpace(r.Name) == "" {
			continue
		}
		deadlines++
		out = append(out, model.Recommendation{
			Priority: model.SeverityMedium,
			Action:   "Calendar the deadline for " + r.Name,
			Reason:   r.Source,
			Deadline: r.Deadline,
		})
	}

	for _, j := range model.AllJurisdictions() {
		c, ok := report.Jurisdictions[j]
		if !ok || c.Expected == 0 || c.Percentage >= LowCoverage {
			continue
		}
		priority := model.SeverityMedium
		if j == model.JurisdictionFederal || j == model.JurisdictionState {
			priority = model.SeverityHigh
		}
		out = append(out, model.Recommendation{
			Priority: priority,
			Action:   fmt.Sprintf("Research %s requirements with the issuing agencies", j),
			Reason:   fmt.Sprintf("Only %d of %d expected %s requirements were found (%.0f%%)", c.Found, c.Expected, j, c.Percentage),
		})
	}

	out = unique(out)
	slices.SortStableFunc(out, func(a, b model.Recommendation) int {
		return rank(a.Priority) - rank(b.Priority)
	})
	return out
}

// Summaries renders recommendations as one-line strings for the coverage
// report.
func Summaries(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		s := fmt.Sprintf("[%s] %s", strings.ToUpper(string(r.Priority)), r.Action)
		if r.Deadline != "" {
			s += " (deadline: " + r.Deadline + ")"
		}
		out[i] = s
	}
	return out
}

func gapReason(g model.GapAnalysis) string {
	if g.Penalty != "" {
		return "Penalty: " + g.Penalty
	}
	return g.Description
}

func unique(recs []model.Recommendation) []model.Recommendation {
	seen := make(map[string]bool, len(recs))
	out := recs[:0]
	for _, r := range recs {
		k := strings.ToLower(r.Action)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func rank(s model.Severity) int {
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
