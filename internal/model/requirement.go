package model

import "time"

// QueryCategory is the search category a URL was discovered under.
type QueryCategory string

const (
	QueryFederal  QueryCategory = "federal"
	QueryState    QueryCategory = "state"
	QueryLocal    QueryCategory = "local"
	QueryIndustry QueryCategory = "industry"
)

// AllQueryCategories returns the four discovery categories in query order.
func AllQueryCategories() []QueryCategory {
	return []QueryCategory{QueryFederal, QueryState, QueryLocal, QueryIndustry}
}

// Jurisdiction is the governing-body tier a requirement originates from.
// City covers every sub-state government tier (county, municipal, township).
type Jurisdiction string

const (
	JurisdictionFederal  Jurisdiction = "federal"
	JurisdictionState    Jurisdiction = "state"
	JurisdictionCity     Jurisdiction = "city"
	JurisdictionIndustry Jurisdiction = "industry"
)

// AllJurisdictions returns the four jurisdictions in report order.
func AllJurisdictions() []Jurisdiction {
	return []Jurisdiction{JurisdictionFederal, JurisdictionState, JurisdictionCity, JurisdictionIndustry}
}

// Valid reports whether j is one of the four jurisdictions.
func (j Jurisdiction) Valid() bool {
	switch j {
	case JurisdictionFederal, JurisdictionState, JurisdictionCity, JurisdictionIndustry:
		return true
	}
	return false
}

// ParseJurisdiction maps free-form labels onto a jurisdiction. Sub-state
// labels ("county", "local", "municipal") fold into city.
func ParseJurisdiction(s string) (Jurisdiction, bool) {
	switch normalizeLabel(s) {
	case "federal", "national", "us", "fed":
		return JurisdictionFederal, true
	case "state":
		return JurisdictionState, true
	case "city", "local", "county", "municipal", "municipality", "township", "town", "village", "borough", "parish":
		return JurisdictionCity, true
	case "industry", "trade", "professional":
		return JurisdictionIndustry, true
	}
	return "", false
}

// Jurisdiction maps a discovery query category onto its default jurisdiction.
func (c QueryCategory) Jurisdiction() Jurisdiction {
	switch c {
	case QueryFederal:
		return JurisdictionFederal
	case QueryState:
		return JurisdictionState
	case QueryLocal:
		return JurisdictionCity
	default:
		return JurisdictionIndustry
	}
}

// ConfidenceLevel grades how much a requirement can be trusted.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// DiscoveredURL is a search result produced by the discovery engine.
type DiscoveredURL struct {
	URL                 string        `json:"url"`
	Title               string        `json:"title,omitempty"`
	SourceQueryCategory QueryCategory `json:"source_query_category"`
}

// ClassifiedURL is a discovered URL tagged with a jurisdiction and relevance.
type ClassifiedURL struct {
	DiscoveredURL
	Category Jurisdiction `json:"category"`
	Relevant bool         `json:"relevant"`
	Reason   string       `json:"reason,omitempty"`
}

// RequirementMetadata records provenance for a requirement.
type RequirementMetadata struct {
	ExtractedAt  time.Time    `json:"extracted_at"`
	Jurisdiction Jurisdiction `json:"jurisdiction,omitempty"`
	Priority     string       `json:"priority,omitempty"`
	MergedFrom   []string     `json:"merged_from,omitempty"`
	Extraction   string       `json:"extraction,omitempty"` // "schema", "regex", "reduced"
}

// Requirement is a single discrete compliance obligation.
type Requirement struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Source           string              `json:"source,omitempty"`
	SourceURL        string              `json:"source_url,omitempty"`
	SourceType       Jurisdiction        `json:"source_type"`
	FormNumber       string              `json:"form_number,omitempty"`
	Deadline         string              `json:"deadline,omitempty"`
	Frequency        string              `json:"frequency,omitempty"`
	Penalty          string              `json:"penalty,omitempty"`
	AppliesCondition string              `json:"applies_condition,omitempty"`
	Citation         string              `json:"citation,omitempty"`
	ConfidenceLevel  ConfidenceLevel     `json:"confidence_level"`
	Verified         bool                `json:"verified"`
	Metadata         RequirementMetadata `json:"metadata"`
}

// BatchScrapeResult is the per-URL outcome of the batch scraper.
type BatchScrapeResult struct {
	URL          string        `json:"url"`
	Success      bool          `json:"success"`
	Requirements []Requirement `json:"requirements,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Statistics counts requirements per jurisdiction.
type Statistics struct {
	Total    int `json:"total"`
	Federal  int `json:"federal"`
	State    int `json:"state"`
	City     int `json:"city"`
	Industry int `json:"industry"`
}

// CountRequirements builds Statistics from a requirement set.
func CountRequirements(reqs []Requirement) Statistics {
	s := Statistics{Total: len(reqs)}
	for _, r := range reqs {
		switch r.SourceType {
		case JurisdictionFederal:
			s.Federal++
		case JurisdictionState:
			s.State++
		case JurisdictionCity:
			s.City++
		case JurisdictionIndustry:
			s.Industry++
		}
	}
	return s
}
