package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

const (
	localMaxBody   = 2 << 20
	localMinBody   = 100
	localUserAgent = "Mozilla/5.0 (compatible; ComplianceBot/1.0; +https://github.com/sells-group/compliance-cli)"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
	titleRe          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// LocalFetcher fetches HTML directly, extracts the main content with
// go-readability and renders it as markdown. It costs nothing and is tried
// before the paid fallbacks.
type LocalFetcher struct {
	client    *http.Client
	converter *md.Converter
}

// NewLocalFetcher creates a LocalFetcher. A nil client gets a 15s timeout.
func NewLocalFetcher(client *http.Client) *LocalFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &LocalFetcher{client: client, converter: conv}
}

// Name implements Fetcher.
func (l *LocalFetcher) Name() string { return "local_http" }

// Supports implements Fetcher. PDFs and other binary documents need a
// rendering provider.
func (l *LocalFetcher) Supports(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// Fetch implements Fetcher.
func (l *LocalFetcher) Fetch(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	pageURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", localUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, localMaxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, bt := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", bt)
	}
	if resp.StatusCode >= 500 {
		return nil, resilience.NewTransientError(eris.Errorf("local_http: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, eris.Errorf("local_http: unsupported content type %q", ct)
	}
	if len(body) < localMinBody {
		return nil, eris.New("local_http: empty page")
	}

	title, markdown, err := l.render(body, pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, eris.New("local_http: no readable content")
	}

	return &model.ScrapedPage{
		URL:        targetURL,
		Title:      title,
		Markdown:   markdown,
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// render extracts the main article and converts it to markdown. Pages
// readability cannot parse are converted whole.
func (l *LocalFetcher) render(body []byte, pageURL *url.URL) (string, string, error) {
	var title, content string
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		title, content = article.Title, article.Content
	} else {
		content = string(body)
	}

	markdown, err := l.converter.ConvertString(content)
	if err != nil {
		return "", "", eris.Wrap(err, "local_http: convert to markdown")
	}
	markdown = strings.TrimSpace(excessiveLinesRe.ReplaceAllString(markdown, "\n\n"))
	if strings.TrimSpace(title) == "" {
		title = extractTitle(body)
	}
	return strings.TrimSpace(title), markdown, nil
}

func extractTitle(body []byte) string {
	if m := titleRe.FindSubmatch(body); len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}
