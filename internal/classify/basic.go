// Package classify tags URLs and requirements with a jurisdiction, using an
// LLM where available and deterministic domain rules everywhere else.
package classify

import (
	"net/url"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// municipalMarkers identify sub-state government hosts and paths.
var municipalMarkers = []string{
	"cityof", "townof", "villageof", "countyof", "boroughof",
	"municipal", "municode", "township", "parish",
}

// BasicCategory assigns a jurisdiction to rawURL from its host and path. It
// is total: every input, including garbage, maps to one of the four
// jurisdictions. Anything mentioning a county is city-level.
func BasicCategory(rawURL string) model.Jurisdiction {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "county") {
		return model.JurisdictionCity
	}
	if j, ok := hostCategory(rawURL); ok {
		return j
	}
	for _, m := range municipalMarkers {
		if strings.Contains(lower, m) {
			return model.JurisdictionCity
		}
	}
	return model.JurisdictionIndustry
}

// hostCategory recognizes government hosts. ok is false for hosts that say
// nothing about the jurisdiction (commercial and association sites).
func hostCategory(rawURL string) (model.Jurisdiction, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return "", false
	}
	if strings.Contains(host, "county") {
		return model.JurisdictionCity, true
	}
	// Federal agencies come first: va.gov is Veterans Affairs, not Virginia.
	if _, ok := model.FederalAgency(host); ok {
		return model.JurisdictionFederal, true
	}
	if strings.HasSuffix(host, ".mil") || strings.HasSuffix(host, ".fed.us") {
		return model.JurisdictionFederal, true
	}
	if _, ok := model.StateOfHost(host); ok {
		return model.JurisdictionState, true
	}

	labels := strings.Split(host, ".")
	n := len(labels)

	// <agency>.<st>.us: state.<st>.us is the state, ci./co./town. prefixes
	// are local governments.
	if n >= 3 && labels[n-1] == "us" && isStateCode(labels[n-2]) {
		switch labels[0] {
		case "ci", "co", "city", "town", "twp", "vil":
			return model.JurisdictionCity, true
		}
		if labels[n-3] == "state" {
			return model.JurisdictionState, true
		}
		return model.JurisdictionCity, true
	}

	if labels[n-1] == "gov" && n >= 2 {
		second := labels[n-2]
		if isStateCode(second) || isStateToken(second) {
			return model.JurisdictionState, true
		}
		// Remaining .gov hosts that are not federal agencies are local
		// governments (sf.gov, nyc.gov, austintexas.gov).
		return model.JurisdictionCity, true
	}
	return "", false
}

func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	_, ok := model.StateName(s)
	return ok
}

// isStateToken matches a state name written as one host label ("texas",
// "newyork").
func isStateToken(s string) bool {
	for name := range model.AllStates() {
		if strings.ReplaceAll(name, " ", "") == s {
			return true
		}
	}
	return false
}
