package model

import (
	"slices"
	"strings"
)

// federalAgencies maps federal agency domains to the agency name.
var federalAgencies = map[string]string{
	"irs.gov":                "Internal Revenue Service",
	"dol.gov":                "U.S. Department of Labor",
	"osha.gov":               "Occupational Safety and Health Administration",
	"sba.gov":                "U.S. Small Business Administration",
	"eeoc.gov":               "Equal Employment Opportunity Commission",
	"ftc.gov":                "Federal Trade Commission",
	"fda.gov":                "Food and Drug Administration",
	"epa.gov":                "Environmental Protection Agency",
	"uscis.gov":              "U.S. Citizenship and Immigration Services",
	"ssa.gov":                "Social Security Administration",
	"ada.gov":                "U.S. Department of Justice (ADA)",
	"hhs.gov":                "U.S. Department of Health and Human Services",
	"usda.gov":               "U.S. Department of Agriculture",
	"ttb.gov":                "Alcohol and Tobacco Tax and Trade Bureau",
	"dea.gov":                "Drug Enforcement Administration",
	"deadiversion.usdoj.gov": "Drug Enforcement Administration",
	"justice.gov":            "U.S. Department of Justice",
	"fincen.gov":             "Financial Crimes Enforcement Network",
	"cms.gov":                "Centers for Medicare & Medicaid Services",
	"dot.gov":                "U.S. Department of Transportation",
	"fmcsa.dot.gov":          "Federal Motor Carrier Safety Administration",
	"cpsc.gov":               "Consumer Product Safety Commission",
	"uspto.gov":              "U.S. Patent and Trademark Office",
	"usa.gov":                "USA.gov",
	"sec.gov":                "Securities and Exchange Commission",
	"fcc.gov":                "Federal Communications Commission",
	"cdc.gov":                "Centers for Disease Control and Prevention",
	"nlrb.gov":               "National Labor Relations Board",
	"federalregister.gov":    "Federal Register",
	"ecfr.gov":               "Electronic Code of Federal Regulations",
	"dhs.gov":                "U.S. Department of Homeland Security",
	"e-verify.gov":           "E-Verify",
	"ice.gov":                "U.S. Immigration and Customs Enforcement",
	"cbp.gov":                "U.S. Customs and Border Protection",
	"treasury.gov":           "U.S. Department of the Treasury",
	"eftps.gov":              "Electronic Federal Tax Payment System",
	"bls.gov":                "Bureau of Labor Statistics",
	"va.gov":                 "U.S. Department of Veterans Affairs",
	"fema.gov":               "Federal Emergency Management Agency",
	"nist.gov":               "National Institute of Standards and Technology",
	"ed.gov":                 "U.S. Department of Education",
	"energy.gov":             "U.S. Department of Energy",
	"commerce.gov":           "U.S. Department of Commerce",
	"trade.gov":              "International Trade Administration",
	"census.gov":             "U.S. Census Bureau",
	"doi.gov":                "U.S. Department of the Interior",
	"hud.gov":                "U.S. Department of Housing and Urban Development",
	"atf.gov":                "Bureau of Alcohol, Tobacco, Firearms and Explosives",
	"faa.gov":                "Federal Aviation Administration",
	"nhtsa.gov":              "National Highway Traffic Safety Administration",
	"pbgc.gov":               "Pension Benefit Guaranty Corporation",
	"fdic.gov":               "Federal Deposit Insurance Corporation",
	"consumerfinance.gov":    "Consumer Financial Protection Bureau",
	"state.gov":              "U.S. Department of State",
	"gsa.gov":                "General Services Administration",
	"sam.gov":                "System for Award Management",
	"opm.gov":                "U.S. Office of Personnel Management",
	"regulations.gov":        "Regulations.gov",
	"healthcare.gov":         "HealthCare.gov",
	"medicare.gov":           "Medicare",
}

// stateHosts maps state government domains that are neither the postal code
// nor the state name to the state's postal code.
var stateHosts = map[string]string{
	"mass.gov":           "MA",
	"myflorida.com":      "FL",
	"floridarevenue.com": "FL",
	"azdor.gov":          "AZ",
	"azsos.gov":          "AZ",
	"coloradosos.gov":    "CO",
	"ncdor.gov":          "NC",
}

// primaryFederalDomains are the agencies most search queries need, in the
// order they are offered as a search domain filter.
var primaryFederalDomains = []string{
	"irs.gov", "dol.gov", "osha.gov", "sba.gov", "eeoc.gov",
	"ftc.gov", "fda.gov", "epa.gov", "uscis.gov", "ada.gov",
}

// FederalSearchDomains returns the federal agency allow-list for searches.
func FederalSearchDomains() []string {
	return append([]string(nil), primaryFederalDomains...)
}

// FederalAgency returns the agency that owns host, matching the domain or
// any subdomain of it.
func FederalAgency(host string) (string, bool) {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
	for host != "" {
		if name, ok := federalAgencies[host]; ok {
			return name, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return "", false
}

// StateOfHost returns the postal code of the state whose irregular
// government domain covers host, matching the domain or any subdomain of it.
// Hosts under "<code>.gov" or "<name>.gov" are not listed here.
func StateOfHost(host string) (string, bool) {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
	for host != "" {
		if code, ok := stateHosts[host]; ok {
			return code, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return "", false
}

// StateDomains returns the domain patterns a state government publishes
// under: "<code>.gov", "state.<code>.us" and "<name>.gov" when the name is a
// single token. Returns nil for unknown states.
func StateDomains(state string) []string {
	code, ok := StateAbbrev(state)
	if !ok {
		return nil
	}
	code = strings.ToLower(code)
	out := []string{code + ".gov", "state." + code + ".us"}
	name, _ := StateName(code)
	if token := strings.ToLower(strings.ReplaceAll(name, " ", "")); token != code {
		out = append(out, token+".gov")
	}
	for host, c := range stateHosts {
		if strings.EqualFold(c, code) && !slices.Contains(out, host) && strings.Count(host, ".") == 1 {
			out = append(out, host)
		}
	}
	slices.Sort(out[2:])
	return out
}
