package discovery

import (
	"net/url"
	"regexp"
	"strings"
)

var answerURLRe = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)

// urlsInText returns the http(s) URLs mentioned in free text, with trailing
// punctuation removed.
func urlsInText(text string) []string {
	matches := answerURLRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?*`")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// validURL reports whether raw is an absolute http(s) URL with a host.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
