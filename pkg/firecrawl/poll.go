package firecrawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Batch job states reported by GetBatchScrapeStatus.
const (
	StatusScraping  = "scraping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrBatchFailed is returned when a batch job ends failed or cancelled.
var ErrBatchFailed = eris.New("firecrawl: batch scrape did not complete")

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures PollBatchScrape.
type PollOption func(*poller)

type poller struct {
	interval time.Duration
	max      time.Duration
	timeout  time.Duration
	observe  func(*BatchScrapeStatusResponse)
}

// WithPollInterval sets the first wait between status checks. Later waits
// double up to the cap.
func WithPollInterval(d time.Duration) PollOption {
	return func(p *poller) { p.interval = d }
}

// WithPollCap sets the longest wait between status checks.
func WithPollCap(d time.Duration) PollOption {
	return func(p *poller) { p.max = d }
}

// WithPollTimeout bounds polling when ctx has no deadline of its own.
func WithPollTimeout(d time.Duration) PollOption {
	return func(p *poller) { p.timeout = d }
}

// WithPollObserver calls fn with every status response, terminal or not.
func WithPollObserver(fn func(*BatchScrapeStatusResponse)) PollOption {
	return func(p *poller) { p.observe = fn }
}

// PollBatchScrape polls batch job id until it completes.
//
// On failure the last status seen is returned alongside the error, so a
// caller that runs out of time can still use the pages already scraped.
// A poll deadline is reported as an error wrapping ctx.Err().
func PollBatchScrape(ctx context.Context, client Client, id string, opts ...PollOption) (*BatchScrapeStatusResponse, error) {
	p := poller{interval: defaultPollInitial, max: defaultPollCap, timeout: defaultPollTimeout}
	for _, o := range opts {
		o(&p)
	}
	if p.max < p.interval {
		p.max = p.interval
	}

	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var last *BatchScrapeStatusResponse
	wait := p.interval
	for {
		status, err := client.GetBatchScrapeStatus(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, eris.Wrapf(ctxErr, "firecrawl: poll batch scrape %s", id)
			}
			return last, eris.Wrapf(err, "firecrawl: poll batch scrape %s", id)
		}
		last = status
		if p.observe != nil {
			p.observe(status)
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed, StatusCancelled:
			return status, eris.Wrapf(ErrBatchFailed, "batch %s %s", id, status.Status)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, eris.Wrapf(ctx.Err(), "firecrawl: poll batch scrape %s timed out after %d/%d pages", id, status.Completed, status.Total)
		case <-timer.C:
		}
		wait = min(wait*2, p.max)
	}
}
