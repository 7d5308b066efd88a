package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip pages that never state requirements.
var defaultExcludePatterns = []string{
	"/news/*",
	"/press/*",
	"/press-releases/*",
	"/newsroom/*",
	"/careers/*",
	"/jobs/*",
	"/events/*",
	"/calendar/*",
	"/*.jpg",
	"/*.png",
	"/*.zip",
}

// PathMatcher filters URLs by glob-style path patterns. "/news/*" matches
// every path below /news, not just one level.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher. No patterns means the defaults.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns, lowercased.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL matches an exclude pattern. Unparseable
// URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	// "/*.pdf"-style patterns match the file name at any depth.
	if strings.HasPrefix(pattern, "/*.") {
		if ok, _ := path.Match(pattern[1:], path.Base(urlPath)); ok {
			return true
		}
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	return false
}
