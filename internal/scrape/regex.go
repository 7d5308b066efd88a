package scrape

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/compliance-cli/internal/model"
)

// DefaultMaxRegexRecords caps the records assembled from one page.
const DefaultMaxRegexRecords = 20

var (
	formRe     = regexp.MustCompile(`(?i)\bform\s+([a-z]{0,4}-?\d[a-z0-9-]*)`)
	mustRe     = regexp.MustCompile(`(?i)\bmust\s+((?:not\s+)?[a-z]+[^.;\n]{3,160})`)
	deadlineRe = regexp.MustCompile(`(?i)\b(?:deadline|due date)\s*[:\-]\s*([^;\n]{3,})`)
	penaltyRe  = regexp.MustCompile(`(?i)\bpenalt(?:y|ies)\s*[:\-]\s*([^;\n]{3,})`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// RegexExtractor assembles minimal requirement records from plain text when
// schema extraction found nothing. It recognizes form numbers ("Form 941"),
// obligations ("must register ..."), and labeled deadlines and penalties.
type RegexExtractor struct {
	MaxRecords int
}

// NewRegexExtractor creates a RegexExtractor with the default cap.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{MaxRecords: DefaultMaxRegexRecords}
}

// Extract returns the records found in text. Labeled deadlines and penalties
// are attached to every record; when they are the only match they form a
// record named after the page.
func (x *RegexExtractor) Extract(text string, ref pageRef) []model.Requirement {
	limit := x.MaxRecords
	if limit <= 0 {
		limit = DefaultMaxRegexRecords
	}

	var out []model.Requirement
	seen := make(map[string]bool)
	add := func(r model.Requirement) {
		key := strings.ToLower(r.Name)
		if len(out) >= limit || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, r)
	}

	for _, m := range formRe.FindAllStringSubmatch(text, -1) {
		num := strings.ToUpper(strings.TrimRight(m[1], "-"))
		r := ref.requirement("Form "+num, "regex")
		r.FormNumber = num
		r.Description = sentenceAround(text, m[0])
		add(r)
	}
	for _, m := range mustRe.FindAllStringSubmatch(text, -1) {
		clause := clean(m[1])
		r := ref.requirement(capitalize(truncate(clause, 100)), "regex")
		r.Description = "Must " + clause
		add(r)
	}

	deadline := firstMatch(deadlineRe, text)
	penalty := firstMatch(penaltyRe, text)
	if len(out) == 0 && (deadline != "" || penalty != "") {
		name := "Requirements"
		if ref.Title != "" {
			name = ref.Title + " requirements"
		}
		add(ref.requirement(name, "regex"))
	}
	for i := range out {
		if out[i].Deadline == "" {
			out[i].Deadline = deadline
		}
		if out[i].Penalty == "" {
			out[i].Penalty = penalty
		}
	}
	return out
}

// firstMatch returns the first sentence captured by re.
func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return truncate(firstSentence(clean(m[1])), 160)
	}
	return ""
}

// firstSentence cuts s at the first ". " followed by a capital letter, so
// abbreviations like "Jan. 31" survive.
func firstSentence(s string) string {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == '.' && s[i+1] == ' ' {
			if r, _ := utf8.DecodeRuneInString(s[i+2:]); unicode.IsUpper(r) {
				return s[:i]
			}
		}
	}
	return strings.TrimSuffix(s, ".")
}

// sentenceAround returns the sentence of text containing match.
func sentenceAround(text, match string) string {
	i := strings.Index(text, match)
	if i < 0 {
		return ""
	}
	start := strings.LastIndexAny(text[:i], ".\n") + 1
	end := strings.IndexAny(text[i:], ".\n")
	if end < 0 {
		end = len(text)
	} else {
		end += i
	}
	return truncate(clean(text[start:end]), 240)
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
