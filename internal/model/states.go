package model

import "strings"

// stateCodes maps lowercase state names to postal abbreviations.
var stateCodes = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

var stateNames = func() map[string]string {
	m := make(map[string]string, len(stateCodes))
	for name, code := range stateCodes {
		m[code] = titleState(name)
	}
	return m
}()

func titleState(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		if p == "of" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// StateAbbrev resolves a state name or abbreviation to its postal code.
func StateAbbrev(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 2 {
		up := strings.ToUpper(s)
		if _, ok := stateNames[up]; ok {
			return up, true
		}
	}
	code, ok := stateCodes[strings.ToLower(s)]
	return code, ok
}

// StateName resolves a state name or abbreviation to its canonical name.
func StateName(s string) (string, bool) {
	code, ok := StateAbbrev(s)
	if !ok {
		return "", false
	}
	return stateNames[code], true
}

// AllStates returns every known state as (lowercase name, postal code) pairs.
func AllStates() map[string]string {
	out := make(map[string]string, len(stateCodes))
	for k, v := range stateCodes {
		out[k] = v
	}
	return out
}
