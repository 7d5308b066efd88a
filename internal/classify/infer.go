package classify

import (
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/textutil"
)

var (
	federalTerms = []string{
		"federal", "irs", "internal revenue service", "department of labor", "osha",
		"eeoc", "fda", "epa", "sba", "uscis", "dhs", "dea", "fmcsa", "fcc", "ftc",
		"ada", "flsa", "fmla", "ein", "form i-9", "e-verify", "u.s.", "united states",
	}
	localTerms = []string{
		"city", "county", "municipal", "township", "village", "borough", "parish",
		"zoning", "health department", "fire department", "fire marshal",
		"certificate of occupancy", "local business tax",
	}
	stateTerms = []string{
		"state", "secretary of state", "franchise tax board", "department of revenue",
		"state board", "workers compensation", "unemployment insurance", "sales tax permit",
		"seller's permit",
	}
	industryTerms = []string{
		"association", "certification", "standard", "institute", "council", "iso",
		"servsafe", "nfpa", "pci", "trade",
	}
)

// InferSourceType derives a requirement's jurisdiction without an LLM. The
// source URL's host wins when it is a recognized government host; otherwise
// the issuing body text and the requirement name are matched against
// per-tier terms, local before state so "Los Angeles County Health
// Department" lands in city.
func InferSourceType(r model.Requirement) model.Jurisdiction {
	if j, ok := hostCategory(r.SourceURL); ok {
		return j
	}
	for _, text := range []string{r.Source, r.Name} {
		if text == "" {
			continue
		}
		if matchesAny(text, localTerms) {
			return model.JurisdictionCity
		}
		if matchesAny(text, federalTerms) {
			return model.JurisdictionFederal
		}
		if matchesAny(text, stateTerms) || matchesStateName(text) {
			return model.JurisdictionState
		}
		if matchesAny(text, industryTerms) {
			return model.JurisdictionIndustry
		}
	}
	if r.SourceURL != "" {
		return BasicCategory(r.SourceURL)
	}
	if r.SourceType.Valid() {
		return r.SourceType
	}
	return model.JurisdictionIndustry
}

// containsWords reports whether term occurs in text as whole words.
func containsWords(text, term string) bool {
	nt := textutil.Normalize(term)
	if nt == "" {
		return false
	}
	return strings.Contains(" "+textutil.Normalize(text)+" ", " "+nt+" ")
}

func matchesAny(text string, terms []string) bool {
	for _, t := range terms {
		if containsWords(text, t) {
			return true
		}
	}
	return false
}

func matchesStateName(text string) bool {
	for name := range model.AllStates() {
		if containsWords(text, name) {
			return true
		}
	}
	return false
}
