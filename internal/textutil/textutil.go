// Package textutil normalizes requirement names for matching.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"with": true, "your": true, "you": true, "all": true, "any": true,
	"must": true, "may": true, "per": true, "this": true, "that": true,
}

// Fold lowercases s and strips diacritics ("Compañía" → "compania"). Casers
// and transformers carry state, so each call builds its own.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Normalize folds s and collapses every run of non-alphanumeric characters
// into a single space.
func Normalize(s string) string {
	return strings.Join(tokens(s), " ")
}

// Keywords returns the distinct non-stopword tokens of s.
func Keywords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokens(s) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Overlap is Jaccard over the keyword sets of two strings.
func Overlap(a, b string) float64 {
	return Jaccard(Keywords(a), Keywords(b))
}

// ContainsFold reports whether either string contains the other as a whole
// word sequence after normalization ("Full-Service Restaurant" contains
// "restaurant"; "barbershop" does not contain "bar").
func ContainsFold(a, b string) bool {
	fa, fb := Normalize(a), Normalize(b)
	if fa == "" || fb == "" {
		return false
	}
	pa, pb := " "+fa+" ", " "+fb+" "
	return strings.Contains(pa, pb) || strings.Contains(pb, pa)
}

func tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
