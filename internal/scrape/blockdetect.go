package scrape

import (
	"net/http"
	"strings"
)

// BlockType names the anti-bot or error page a fetch ran into.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockAccess     BlockType = "access_denied"
)

// challengeMarkers appear on interstitial pages served instead of content.
var challengeMarkers = []string{
	"checking your browser",
	"cf-browser-verification",
	"just a moment...",
	"attention required!",
}

// DetectBlock inspects a fetched page for anti-bot protection. Many state and
// county portals sit behind Cloudflare or Akamai, which answer with a
// challenge page and a 200 or 403.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
		if strings.Contains(strings.ToLower(resp.Header.Get("server")), "akamai") {
			return true, BlockAccess
		}
	}

	return detectBlockText(strings.ToLower(string(body)), len(body))
}

// detectBlockText classifies a lowercased page body of size n.
func detectBlockText(lower string, n int) (bool, BlockType) {
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true, BlockCloudflare
		}
	}
	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "captcha-container") {
		return true, BlockCaptcha
	}
	if n < 2000 {
		if strings.Contains(lower, "access denied") || strings.Contains(lower, "403 forbidden") {
			return true, BlockAccess
		}
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}
