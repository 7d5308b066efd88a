package provider

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/firecrawl"
)

// Firecrawl credit cost per page.
const (
	creditsMarkdown = 1
	creditsJSON     = 5
)

// Firecrawl adapts a Firecrawl client to Scraper and BatchScraper.
type Firecrawl struct {
	client   firecrawl.Client
	pollOpts []firecrawl.PollOption
}

// NewFirecrawl wraps client. pollOpts tune batch status polling.
func NewFirecrawl(client firecrawl.Client, pollOpts ...firecrawl.PollOption) *Firecrawl {
	if len(pollOpts) == 0 {
		pollOpts = []firecrawl.PollOption{
			firecrawl.WithPollInterval(2 * time.Second),
			firecrawl.WithPollCap(10 * time.Second),
		}
	}
	return &Firecrawl{client: client, pollOpts: pollOpts}
}

func formatsFor(opts ScrapeOptions) ([]string, *firecrawl.JSONOptions) {
	if opts.MarkdownOnly || opts.Schema == nil {
		return []string{firecrawl.FormatMarkdown}, nil
	}
	return []string{firecrawl.FormatJSON, firecrawl.FormatMarkdown},
		&firecrawl.JSONOptions{Schema: opts.Schema, Prompt: opts.Prompt}
}

func classifyFirecrawl(err error, op string) error {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus("firecrawl", apiErr.StatusCode, err)
	}
	return eris.Wrap(err, "firecrawl: "+op)
}

func toResult(requested string, d firecrawl.PageData) ScrapeResult {
	u := d.PageURL()
	if u == "" {
		u = requested
	}
	return ScrapeResult{
		URL:       u,
		Title:     d.Metadata.Title,
		PlainText: d.Markdown,
		JSON:      d.JSON,
		Success:   d.Metadata.Error == "" && (d.Metadata.StatusCode == 0 || d.Metadata.StatusCode < 400),
		Error:     d.Metadata.Error,
	}
}

// Scrape fetches one URL.
func (f *Firecrawl) Scrape(ctx context.Context, url string, opts ScrapeOptions) (*ScrapeResult, error) {
	formats, jsonOpts := formatsFor(opts)
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         formats,
		JSONOptions:     jsonOpts,
		OnlyMainContent: true,
		WaitFor:         opts.WaitMs,
		Timeout:         opts.TimeoutMs,
	})
	if err != nil {
		return nil, classifyFirecrawl(err, "scrape")
	}

	credits := creditsMarkdown
	if jsonOpts != nil {
		credits = creditsJSON
	}
	cost.FromContext(ctx).Scrape(credits)

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "scrape not successful"
		}
		return &ScrapeResult{URL: url, Success: false, Error: msg}, nil
	}
	res := toResult(url, resp.Data)
	return &res, nil
}

// ScrapeMany submits one batch job and polls it to completion. URLs the
// batch did not return are reported as unsuccessful.
func (f *Firecrawl) ScrapeMany(ctx context.Context, urls []string, opts ScrapeOptions) ([]ScrapeResult, error) {
	formats, jsonOpts := formatsFor(opts)
	resp, err := f.client.BatchScrape(ctx, firecrawl.BatchScrapeRequest{
		URLs:            urls,
		Formats:         formats,
		JSONOptions:     jsonOpts,
		OnlyMainContent: true,
		WaitFor:         opts.WaitMs,
		Timeout:         opts.TimeoutMs,
	})
	if err != nil {
		return nil, classifyFirecrawl(err, "batch scrape")
	}
	if !resp.Success || resp.ID == "" {
		return nil, eris.New("firecrawl: batch scrape not accepted")
	}

	pollOpts := append(slices.Clone(f.pollOpts), firecrawl.WithPollObserver(func(s *firecrawl.BatchScrapeStatusResponse) {
		zap.L().Debug("firecrawl: batch status",
			zap.String("batch_id", resp.ID),
			zap.String("status", s.Status),
			zap.Int("completed", s.Completed),
			zap.Int("total", s.Total),
		)
	}))
	status, err := firecrawl.PollBatchScrape(ctx, f.client, resp.ID, pollOpts...)
	if err != nil {
		// Keep the pages already scraped when only the poll deadline ran out.
		partial := status != nil && len(status.Data) > 0 &&
			errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
		if !partial {
			return nil, classifyFirecrawl(err, "poll batch scrape")
		}
		zap.L().Warn("firecrawl: batch poll timed out, using partial results",
			zap.String("batch_id", resp.ID),
			zap.Int("completed", status.Completed),
			zap.Int("total", status.Total),
		)
	}
	cost.FromContext(ctx).Scrape(status.CreditsUsed)

	byURL := make(map[string]firecrawl.PageData, len(status.Data))
	for _, d := range status.Data {
		byURL[d.Metadata.SourceURL] = d
		if d.Metadata.URL != "" {
			if _, ok := byURL[d.Metadata.URL]; !ok {
				byURL[d.Metadata.URL] = d
			}
		}
	}

	out := make([]ScrapeResult, len(urls))
	missing := 0
	for i, u := range urls {
		d, ok := byURL[u]
		if !ok {
			missing++
			out[i] = ScrapeResult{URL: u, Error: "missing from batch response"}
			continue
		}
		out[i] = toResult(u, d)
	}
	if missing > 0 {
		zap.L().Debug("firecrawl: batch response incomplete",
			zap.String("batch_id", resp.ID),
			zap.Int("requested", len(urls)),
			zap.Int("missing", missing),
		)
	}
	return out, nil
}
