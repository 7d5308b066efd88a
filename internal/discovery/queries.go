package discovery

import (
	"fmt"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Query is one category search.
type Query struct {
	Category     model.QueryCategory
	Prompt       string
	DomainFilter []string
}

// BuildQueries returns the four category queries for p, in category order.
// Federal and state queries carry a domain allow-list; local and industry
// queries search the open web.
func BuildQueries(p model.BusinessProfile) []Query {
	industry := strings.TrimSpace(p.Industry)
	if p.NAICSCode != "" {
		industry = fmt.Sprintf("%s (NAICS %s)", industry, p.NAICSCode)
	}
	size := fmt.Sprintf("%d employees", p.EmployeeCount)
	if p.AnnualRevenue != nil {
		size += fmt.Sprintf(" and about $%.0f in annual revenue", *p.AnnualRevenue)
	}
	factors := ""
	if len(p.SpecialFactors) > 0 {
		factors = " Additional context: " + strings.Join(p.SpecialFactors, "; ") + "."
	}

	state := p.StateName()
	local := p.City
	if strings.TrimSpace(local) == "" {
		local = "cities and counties in " + state
	} else {
		local = strings.TrimSpace(local) + ", " + state
	}

	return []Query{
		{
			Category: model.QueryFederal,
			Prompt: fmt.Sprintf("What federal registrations, tax filings, employment laws and workplace "+
				"safety rules apply to a %s business in %s with %s?%s List the official agency pages.",
				industry, state, size, factors),
			DomainFilter: model.FederalSearchDomains(),
		},
		{
			Category: model.QueryState,
			Prompt: fmt.Sprintf("What %s state licenses, permits, tax registrations and employer "+
				"obligations apply to a %s business with %s?%s List the official state agency pages.",
				state, industry, size, factors),
			DomainFilter: model.StateDomains(p.State),
		},
		{
			Category: model.QueryLocal,
			Prompt: fmt.Sprintf("What business licenses, zoning, health, fire and signage permits does "+
				"a %s business need in %s? Include city and county government pages.%s",
				industry, local, factors),
		},
		{
			Category: model.QueryIndustry,
			Prompt: fmt.Sprintf("What industry-specific licenses, certifications and regulatory "+
				"standards apply to a %s business operating in %s with %s?%s",
				industry, state, size, factors),
		},
	}
}
