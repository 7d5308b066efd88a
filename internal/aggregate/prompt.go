package aggregate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/compliance-cli/internal/model"
)

const maxDescriptionLen = 200

func semanticPrompt(j model.Jurisdiction, reqs []model.Requirement, p model.BusinessProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Below are %s compliance requirements collected from several web pages for this business:\n\n", j)
	fmt.Fprintf(&b, "Business: %s", p.Industry)
	if p.NAICSCode != "" {
		fmt.Fprintf(&b, " (NAICS %s)", p.NAICSCode)
	}
	fmt.Fprintf(&b, "\nLocation: %s\nEmployees: %d\n\nRequirements:\n", p.Location(), p.EmployeeCount)

	for i, r := range reqs {
		fmt.Fprintf(&b, "%d. %s", i, r.Name)
		if r.FormNumber != "" {
			fmt.Fprintf(&b, " | form: %s", r.FormNumber)
		}
		if r.Source != "" {
			fmt.Fprintf(&b, " | source: %s", r.Source)
		}
		if r.Deadline != "" {
			fmt.Fprintf(&b, " | deadline: %s", r.Deadline)
		}
		if d := strings.TrimSpace(r.Description); d != "" {
			fmt.Fprintf(&b, " | %s", clip(d, maxDescriptionLen))
		}
		b.WriteByte('\n')
	}

	b.WriteString(`
Merge near-duplicates: entries with similar names, the same form or the same agency obligation.
Drop entries that clearly do not apply to this industry or location (for example a mining permit for a restaurant).
Rules:
- Only reference the numbered entries above. Do not invent requirements, names, deadlines or any other facts.
- Keep at least one entry. Never drop every entry of this list.
- When unsure whether an entry applies, keep it.

Respond with a JSON array with one object per requirement to keep. "keep" is the entry that survives and "merge" lists the entries folded into it:
[{"keep": 0, "merge": [3, 5]}, {"keep": 1, "merge": []}]`)
	return b.String()
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
