package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/compliance-cli/internal/model"
)

// jurisdictionRules is included in every classification prompt.
const jurisdictionRules = `Jurisdiction rules:
- federal: U.S. federal agencies and federal law (IRS, DOL, OSHA, EEOC, FDA, EPA, SBA, USCIS, DOJ/ADA).
- state: the state government, its agencies, boards and state law.
- city: ALL local government. The "city" category absorbs county, municipal, township and city governments. There is no separate county category: anything issued by a county is "city".
- industry: trade associations, certification bodies, industry standards and anything that is not a government body.
Use exactly one of: federal, state, city, industry.`

func profileSummary(p model.BusinessProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s", p.Industry)
	if p.NAICSCode != "" {
		fmt.Fprintf(&b, " (NAICS %s)", p.NAICSCode)
	}
	fmt.Fprintf(&b, "\nLocation: %s\nEmployees: %d", p.Location(), p.EmployeeCount)
	if p.AnnualRevenue != nil {
		fmt.Fprintf(&b, "\nAnnual revenue: $%.0f", *p.AnnualRevenue)
	}
	if len(p.SpecialFactors) > 0 {
		fmt.Fprintf(&b, "\nOther factors: %s", strings.Join(p.SpecialFactors, "; "))
	}
	return b.String()
}

func urlPrompt(urls []model.DiscoveredURL, p model.BusinessProfile) string {
	var b strings.Builder
	b.WriteString("Decide which of these web pages describe compliance requirements that apply to the business below, and tag each with its jurisdiction.\n\n")
	b.WriteString(profileSummary(p))
	b.WriteString("\n\n")
	b.WriteString(jurisdictionRules)
	b.WriteString("\n\nA page is relevant when it is an official or authoritative source for a license, permit, registration, tax filing, labor law or safety standard this business plausibly needs. Pages about other industries, other states, news and marketing are not relevant.\n\nPages:\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "%d. %s", i, u.URL)
		if u.Title != "" {
			fmt.Fprintf(&b, " | %s", u.Title)
		}
		fmt.Fprintf(&b, " | found by %s search\n", u.SourceQueryCategory)
	}
	b.WriteString(`
Respond with a JSON array, one object per page:
[{"index": 0, "category": "federal", "relevant": true, "reason": "short reason"}]`)
	return b.String()
}

func requirementPrompt(reqs []model.Requirement, p model.BusinessProfile) string {
	var b strings.Builder
	b.WriteString("Assign a jurisdiction to each compliance requirement below, based on which government body or organization imposes it.\n\n")
	b.WriteString(profileSummary(p))
	b.WriteString("\n\n")
	b.WriteString(jurisdictionRules)
	b.WriteString("\n\nRequirements:\n")
	for i, r := range reqs {
		fmt.Fprintf(&b, "%d. %s", i, r.Name)
		if r.Source != "" {
			fmt.Fprintf(&b, " | source: %s", r.Source)
		}
		if r.SourceURL != "" {
			fmt.Fprintf(&b, " | url: %s", r.SourceURL)
		}
		if r.FormNumber != "" {
			fmt.Fprintf(&b, " | form: %s", r.FormNumber)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Respond with a JSON array, one object per requirement:
[{"index": 0, "source_type": "state"}]`)
	return b.String()
}
