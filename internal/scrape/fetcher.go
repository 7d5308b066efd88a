package scrape

import (
	"context"
	"time"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Fetcher retrieves the plain-text rendering of a single page. Fetchers make
// up the fallback Chain used when the scrape provider fails outright.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.ScrapedPage, error)
	Name() string
	Supports(url string) bool
}

// Cache stores scraped pages between runs. A miss is (nil, nil).
type Cache interface {
	GetPage(ctx context.Context, key string) (*model.PageCacheEntry, error)
	SetPage(ctx context.Context, key string, page model.ScrapedPage, ttl time.Duration) error
}
