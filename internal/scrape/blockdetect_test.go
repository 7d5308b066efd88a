package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare ray", 403, http.Header{"Cf-Ray": {"abc123"}}, "", BlockCloudflare},
		{"cloudflare server", 503, http.Header{"Server": {"Cloudflare"}}, "", BlockCloudflare},
		{"akamai", 403, http.Header{"Server": {"AkamaiGHost"}}, "", BlockAccess},
		{"challenge page", 200, http.Header{}, "<title>Just a moment...</title>", BlockCloudflare},
		{"recaptcha", 200, http.Header{}, `<div class="g-recaptcha" data-sitekey="x"></div>`, BlockCaptcha},
		{"js shell", 200, http.Header{}, "<html><noscript>Please enable JavaScript to view this site.</noscript></html>", BlockJSShell},
		{"meta refresh", 200, http.Header{}, `<meta http-equiv="refresh" content="0; url=/home">`, BlockJSShell},
		{"short access denied", 200, http.Header{}, "<h1>Access Denied</h1>", BlockAccess},
		{"clean", 200, http.Header{}, "<html><body>Business license applications are due by January 31.</body></html>", BlockNone},
		{"long page mentioning access denied", 200, http.Header{}, strings.Repeat("permit ", 400) + "access denied", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocked, bt := DetectBlock(&http.Response{StatusCode: tt.status, Header: tt.header}, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, []byte("captcha"))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}
