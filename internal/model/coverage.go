package model

import (
	"strconv"
	"strings"
	"time"
)

// Severity grades a missing requirement.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// RiskLevel summarizes the overall compliance exposure.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// GapAnalysis is an expected requirement with no discovered match.
type GapAnalysis struct {
	Category               string   `json:"category"`
	Requirement            string   `json:"requirement"`
	Severity               Severity `json:"severity"`
	Penalty                string   `json:"penalty,omitempty"`
	Description            string   `json:"description"`
	SuggestedSearchIntents []string `json:"suggested_search_intents,omitempty"`
	ApplicableConditions   []string `json:"applicable_conditions,omitempty"`
}

// JurisdictionCoverage is the found/expected ratio for one jurisdiction.
type JurisdictionCoverage struct {
	Found      int     `json:"found"`
	Expected   int     `json:"expected"`
	Percentage float64 `json:"percentage"`
}

// ConfidenceDistribution counts requirements per confidence level.
type ConfidenceDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// CoverageReport scores discovered requirements against the knowledge base.
type CoverageReport struct {
	Jurisdictions          map[Jurisdiction]JurisdictionCoverage `json:"jurisdictions"`
	Industry               JurisdictionCoverage                  `json:"industry"`
	ConfidenceDistribution ConfidenceDistribution                `json:"confidence_distribution"`
	OverallScore           float64                               `json:"overall_score"`
	RiskLevel              RiskLevel                             `json:"risk_level"`
	Gaps                   []GapAnalysis                         `json:"gaps"`
	Recommendations        []string                              `json:"recommendations,omitempty"`
}

// Recommendation is a prioritized follow-up action.
type Recommendation struct {
	Priority Severity `json:"priority"`
	Action   string   `json:"action"`
	Reason   string   `json:"reason,omitempty"`
	Deadline string   `json:"deadline,omitempty"`
}

// Result is the final pipeline output for one compliance check.
type Result struct {
	RunID           string           `json:"run_id"`
	Profile         BusinessProfile  `json:"profile"`
	Requirements    []Requirement    `json:"requirements"`
	Coverage        CoverageReport   `json:"coverage"`
	Gaps            []GapAnalysis    `json:"gaps"`
	Recommendations []Recommendation `json:"recommendations"`
	Statistics      Statistics       `json:"statistics"`
	URLsDiscovered  int              `json:"urls_discovered"`
	URLsScraped     int              `json:"urls_scraped"`
	URLsFailed      int              `json:"urls_failed"`
	Usage           TokenUsage       `json:"usage"`
	Duration        time.Duration    `json:"duration_ns"`
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
