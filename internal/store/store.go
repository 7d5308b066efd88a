// Package store caches scraped pages across runs.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// PageCache persists scraped pages keyed by page and profile. A miss is
// (nil, nil).
type PageCache interface {
	GetPage(ctx context.Context, key string) (*model.PageCacheEntry, error)
	SetPage(ctx context.Context, key string, page model.ScrapedPage, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a PageCache.
type Config struct {
	Driver string     `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, none
	DSN    string     `yaml:"dsn" mapstructure:"dsn"`
	Pool   PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Open creates the configured cache and runs its migration.
func Open(ctx context.Context, cfg Config) (PageCache, error) {
	var (
		c   PageCache
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none", "noop":
		return Noop{}, nil
	case "sqlite":
		c, err = NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		c, err = NewPostgres(ctx, cfg.DSN, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Noop is a PageCache that stores nothing.
type Noop struct{}

func (Noop) GetPage(context.Context, string) (*model.PageCacheEntry, error) { return nil, nil }
func (Noop) SetPage(context.Context, string, model.ScrapedPage, time.Duration) error {
	return nil
}
func (Noop) DeleteExpiredPages(context.Context) (int, error) { return 0, nil }
func (Noop) Migrate(context.Context) error                    { return nil }
func (Noop) Close() error                                     { return nil }
