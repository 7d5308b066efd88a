// Package progress defines the milestone events a compliance check emits and
// the tracker that assigns them monotonic progress percentages.
package progress

import (
	"fmt"
)

// Type discriminates event variants on the wire.
type Type string

const (
	TypeQueryBuilding           Type = "query-building"
	TypeURLsDiscovered          Type = "urls-discovered"
	TypeURLsFiltered            Type = "urls-filtered"
	TypeScrapingSite            Type = "scraping-site"
	TypeSiteComplete            Type = "site-complete"
	TypeSiteFailed              Type = "site-failed"
	TypeAggregationComplete     Type = "aggregation-complete"
	TypeAIDeduplicationComplete Type = "ai-deduplication-complete"
	TypeComplete                Type = "complete"
	TypeError                   Type = "error"
)

// Event is one pipeline milestone. The set of implementations is closed:
// only types in this package satisfy it.
type Event interface {
	Type() Type
	Message() string
	event()
}

// QueryBuilding is emitted before the discovery searches are issued.
type QueryBuilding struct {
	Categories []string `json:"categories"`
	Location   string   `json:"location"`
	Industry   string   `json:"industry"`
}

func (QueryBuilding) Type() Type { return TypeQueryBuilding }
func (e QueryBuilding) Message() string {
	return fmt.Sprintf("Building %d search queries for %s in %s", len(e.Categories), e.Industry, e.Location)
}
func (QueryBuilding) event() {}

// URLsDiscovered reports the merged, deduplicated discovery result.
type URLsDiscovered struct {
	Count      int            `json:"count"`
	ByCategory map[string]int `json:"by_category,omitempty"`
}

func (URLsDiscovered) Type() Type { return TypeURLsDiscovered }
func (e URLsDiscovered) Message() string {
	return fmt.Sprintf("Discovered %d unique URLs", e.Count)
}
func (URLsDiscovered) event() {}

// URLsFiltered reports how many discovered URLs were judged relevant.
type URLsFiltered struct {
	Relevant int  `json:"relevant"`
	Total    int  `json:"total"`
	Fallback bool `json:"fallback,omitempty"`
}

func (URLsFiltered) Type() Type { return TypeURLsFiltered }
func (e URLsFiltered) Message() string {
	return fmt.Sprintf("Kept %d of %d URLs as relevant", e.Relevant, e.Total)
}
func (URLsFiltered) event() {}

// ScrapingSite is emitted when a URL's scrape starts.
type ScrapingSite struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

func (ScrapingSite) Type() Type { return TypeScrapingSite }
func (e ScrapingSite) Message() string {
	return fmt.Sprintf("Scraping %s (%d/%d)", e.URL, e.Index+1, e.Total)
}
func (ScrapingSite) event() {}

// SiteComplete is emitted when a URL produced a successful result.
type SiteComplete struct {
	URL          string `json:"url"`
	Requirements int    `json:"requirements"`
	Done         int    `json:"done"`
	Total        int    `json:"total"`
}

func (SiteComplete) Type() Type { return TypeSiteComplete }
func (e SiteComplete) Message() string {
	return fmt.Sprintf("Extracted %d requirements from %s", e.Requirements, e.URL)
}
func (SiteComplete) event() {}

// SiteFailed is emitted when a URL could not be scraped.
type SiteFailed struct {
	URL   string `json:"url"`
	Error string `json:"error"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

func (SiteFailed) Type() Type { return TypeSiteFailed }
func (e SiteFailed) Message() string {
	return fmt.Sprintf("Failed to scrape %s: %s", e.URL, e.Error)
}
func (SiteFailed) event() {}

// AggregationComplete reports the exact-key deduplication result.
type AggregationComplete struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

func (AggregationComplete) Type() Type { return TypeAggregationComplete }
func (e AggregationComplete) Message() string {
	return fmt.Sprintf("Merged %d requirements into %d", e.Before, e.After)
}
func (AggregationComplete) event() {}

// AIDeduplicationComplete reports the semantic deduplication result.
type AIDeduplicationComplete struct {
	Before    int `json:"before"`
	After     int `json:"after"`
	Fallbacks int `json:"fallbacks,omitempty"`
}

func (AIDeduplicationComplete) Type() Type { return TypeAIDeduplicationComplete }
func (e AIDeduplicationComplete) Message() string {
	return fmt.Sprintf("Semantic deduplication kept %d of %d requirements", e.After, e.Before)
}
func (AIDeduplicationComplete) event() {}

// Complete is the terminal success event.
type Complete struct {
	RunID        string  `json:"run_id"`
	Requirements int     `json:"requirements"`
	Gaps         int     `json:"gaps"`
	OverallScore float64 `json:"overall_score"`
	RiskLevel    string  `json:"risk_level"`
}

func (Complete) Type() Type { return TypeComplete }
func (e Complete) Message() string {
	return fmt.Sprintf("Found %d requirements, %d gaps (score %.0f, %s risk)", e.Requirements, e.Gaps, e.OverallScore, e.RiskLevel)
}
func (Complete) event() {}

// Error is the terminal failure event.
type Error struct {
	Err   string `json:"error"`
	Fatal bool   `json:"fatal"`
}

func (Error) Type() Type { return TypeError }
func (e Error) Message() string { return e.Err }
func (Error) event()            {}
