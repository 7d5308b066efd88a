// Package llmjson recovers JSON values from free-form LLM responses.
//
// Every LLM call site parses through ParseOr so that malformed output always
// degrades to a caller-supplied deterministic result instead of an error.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")
	arrayPattern         = regexp.MustCompile(`(?s)\[.*\]`)
	objectPattern        = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is returned by Parse when no candidate decodes into the target type.
var ErrNoJSON = eris.New("llmjson: no decodable JSON in response")

// ParseOr decodes text into T, falling back to fallback() when nothing in the
// response decodes. The bool reports whether the value came from the response.
func ParseOr[T any](text string, fallback func() T) (T, bool) {
	v, err := Parse[T](text)
	if err != nil {
		return fallback(), false
	}
	return v, true
}

// Parse tries, in order: the whole response, the first fenced code block, the
// outermost bracket-delimited substring and the outermost brace-delimited
// substring. Each candidate is tried raw and again after stripping line
// comments and trailing commas.
func Parse[T any](text string) (T, error) {
	var zero T
	for _, c := range candidates(text) {
		var v T
		if err := json.Unmarshal([]byte(c), &v); err == nil {
			return v, nil
		}
		cleaned := Clean(c)
		if cleaned == c {
			continue
		}
		if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
			return v, nil
		}
	}
	return zero, ErrNoJSON
}

func candidates(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	out := []string{text}
	if m := fencePattern.FindStringSubmatch(text); len(m) > 1 {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if m := arrayPattern.FindString(text); m != "" {
		out = append(out, m)
	}
	if m := objectPattern.FindString(text); m != "" {
		out = append(out, m)
	}
	return out
}

// Clean removes // comments outside string literals and trailing commas
// before a closing bracket or brace.
func Clean(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
