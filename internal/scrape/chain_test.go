package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
)

type stubFetcher struct {
	name     string
	supports bool
	page     *model.ScrapedPage
	err      error
	calls    int
}

func (s *stubFetcher) Name() string           { return s.name }
func (s *stubFetcher) Supports(_ string) bool { return s.supports }
func (s *stubFetcher) Fetch(_ context.Context, _ string) (*model.ScrapedPage, error) {
	s.calls++
	return s.page, s.err
}

func TestChain_FirstSuccess(t *testing.T) {
	t.Parallel()
	first := &stubFetcher{name: "local_http", supports: true, page: &model.ScrapedPage{URL: "https://sf.gov", Source: "local_http"}}
	second := &stubFetcher{name: "jina", supports: true}

	page, err := NewChain(nil, first, second).Fetch(context.Background(), "https://sf.gov")
	require.NoError(t, err)
	assert.Equal(t, "local_http", page.Source)
	assert.Zero(t, second.calls)
}

func TestChain_FallsThrough(t *testing.T) {
	t.Parallel()
	first := &stubFetcher{name: "local_http", supports: true, err: errors.New("blocked")}
	skipped := &stubFetcher{name: "pdf", supports: false}
	last := &stubFetcher{name: "jina", supports: true, page: &model.ScrapedPage{Source: "jina"}}

	page, err := NewChain(NewPathMatcher(nil), first, skipped, last).Fetch(context.Background(), "https://www.ca.gov/")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Zero(t, skipped.calls)
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()
	c := NewChain(nil,
		&stubFetcher{name: "a", supports: true, err: errors.New("a failed")},
		&stubFetcher{name: "b", supports: true, err: errors.New("b failed")},
	)
	_, err := c.Fetch(context.Background(), "https://sf.gov")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all fetchers failed")
	assert.Contains(t, err.Error(), "b failed")
}

func TestChain_ExcludedAndUnsupported(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{name: "a", supports: true}
	_, err := NewChain(NewPathMatcher([]string{"/news/*"}), f).Fetch(context.Background(), "https://sf.gov/news/item")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excluded")

	_, err = NewChain(nil, &stubFetcher{name: "a"}).Fetch(context.Background(), "https://sf.gov")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable fetcher")
}

func TestChain_Len(t *testing.T) {
	t.Parallel()
	var nilChain *Chain
	assert.Zero(t, nilChain.Len())
	assert.Equal(t, 2, NewChain(nil, &stubFetcher{}, &stubFetcher{}).Len())
}
