package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

// fakeSearcher answers per category, identified from the prompt.
type fakeSearcher struct {
	mu       sync.Mutex
	requests []provider.SearchRequest
	answer   func(cat model.QueryCategory, req provider.SearchRequest) (*provider.SearchResult, error)
}

func categoryOf(req provider.SearchRequest) model.QueryCategory {
	switch {
	case strings.HasPrefix(req.Prompt, "What federal"):
		return model.QueryFederal
	case strings.Contains(req.Prompt, "state licenses"):
		return model.QueryState
	case strings.Contains(req.Prompt, "zoning"):
		return model.QueryLocal
	default:
		return model.QueryIndustry
	}
}

func (f *fakeSearcher) Search(_ context.Context, req provider.SearchRequest) (*provider.SearchResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.answer(categoryOf(req), req)
}

func sfRestaurant() model.BusinessProfile {
	return model.BusinessProfile{
		State:         "California",
		City:          "San Francisco",
		Industry:      "Restaurant",
		EmployeeCount: 15,
		AnnualRevenue: model.Float64(1_500_000),
	}
}

func newCaller() *resilience.Caller {
	return resilience.NewCaller(resilience.CallerConfig{Name: "search", MaxRetries: 2, BaseDelay: time.Millisecond})
}

func canned(cat model.QueryCategory, _ provider.SearchRequest) (*provider.SearchResult, error) {
	switch cat {
	case model.QueryFederal:
		return &provider.SearchResult{
			URLs:   []provider.Link{{URL: "https://www.irs.gov/businesses/small-businesses-self-employed/employer-id-numbers", Title: "EIN"}},
			Answer: "See also https://www.dol.gov/agencies/whd/flsa.",
		}, nil
	case model.QueryState:
		return &provider.SearchResult{URLs: []provider.Link{{URL: "https://www.cdtfa.ca.gov/services/", Title: "CDTFA"}}}, nil
	case model.QueryLocal:
		return &provider.SearchResult{URLs: []provider.Link{{URL: "https://www.sf.gov/register-your-business"}}}, nil
	default:
		return &provider.SearchResult{URLs: []provider.Link{
			{URL: "https://www.irs.gov/businesses/small-businesses-self-employed/employer-id-numbers", Title: "dup"},
			{URL: "https://www.servsafe.com/"},
		}}, nil
	}
}

func TestDiscover_EndToEndRestaurant(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: canned}
	e := New(fs, newCaller(), Config{})

	urls, err := e.Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)

	byCat := map[model.QueryCategory][]string{}
	for _, u := range urls {
		byCat[u.SourceQueryCategory] = append(byCat[u.SourceQueryCategory], u.URL)
	}
	require.NotEmpty(t, byCat[model.QueryFederal])
	assert.Contains(t, byCat[model.QueryFederal][0], "irs.gov")
	assert.Contains(t, byCat[model.QueryFederal], "https://www.dol.gov/agencies/whd/flsa")
	require.NotEmpty(t, byCat[model.QueryState])
	assert.Contains(t, byCat[model.QueryState][0], "ca.gov")

	// The IRS URL repeated by the industry query keeps its federal tag.
	assert.Equal(t, []string{"https://www.servsafe.com/"}, byCat[model.QueryIndustry])
	assert.Len(t, urls, 5)
	assert.Len(t, fs.requests, 4)
}

func TestDiscover_DomainFilters(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: canned}
	_, err := New(fs, newCaller(), Config{ContextSize: provider.ContextMedium}).Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)

	for _, req := range fs.requests {
		assert.Equal(t, provider.ContextMedium, req.ContextSize)
		switch categoryOf(req) {
		case model.QueryFederal:
			assert.Contains(t, req.DomainFilter, "irs.gov")
		case model.QueryState:
			assert.Contains(t, req.DomainFilter, "ca.gov")
			assert.Contains(t, req.DomainFilter, "state.ca.us")
		default:
			assert.Empty(t, req.DomainFilter)
		}
	}
}

func TestDiscover_SearchesRunConcurrently(t *testing.T) {
	t.Parallel()

	var arrived sync.WaitGroup
	arrived.Add(4)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	fs := &fakeSearcher{answer: func(cat model.QueryCategory, req provider.SearchRequest) (*provider.SearchResult, error) {
		arrived.Done()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
			return nil, errors.New("searches were serialized")
		}
		return canned(cat, req)
	}}

	urls, err := New(fs, newCaller(), Config{}).Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestDiscover_CategoryFailureIsIsolated(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: func(cat model.QueryCategory, req provider.SearchRequest) (*provider.SearchResult, error) {
		if cat == model.QueryState {
			return nil, errors.New("upstream exploded")
		}
		return canned(cat, req)
	}}

	urls, err := New(fs, newCaller(), Config{}).Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)
	for _, u := range urls {
		assert.NotEqual(t, model.QueryState, u.SourceQueryCategory)
	}
	assert.Len(t, urls, 4)
}

func TestDiscover_RateLimitExhaustionContributesNothing(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: func(cat model.QueryCategory, req provider.SearchRequest) (*provider.SearchResult, error) {
		if cat == model.QueryLocal {
			return nil, &resilience.RateLimitError{Provider: "perplexity"}
		}
		return canned(cat, req)
	}}

	urls, err := New(fs, newCaller(), Config{}).Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)
	assert.Len(t, urls, 4)

	local := 0
	for _, r := range fs.requests {
		if categoryOf(r) == model.QueryLocal {
			local++
		}
	}
	assert.Equal(t, 3, local, "one attempt plus two retries")
}

func TestDiscover_AuthErrorIsFatal(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: func(cat model.QueryCategory, req provider.SearchRequest) (*provider.SearchResult, error) {
		if cat == model.QueryFederal {
			return nil, &resilience.AuthError{Provider: "perplexity", StatusCode: 401, Err: errors.New("bad key")}
		}
		return canned(cat, req)
	}}

	urls, err := New(fs, newCaller(), Config{}).Discover(context.Background(), sfRestaurant())
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.Nil(t, urls)
}

func TestDiscover_MaxURLsAndInvalidURLs(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{answer: func(cat model.QueryCategory, _ provider.SearchRequest) (*provider.SearchResult, error) {
		return &provider.SearchResult{URLs: []provider.Link{
			{URL: "not a url"},
			{URL: "ftp://files.example.gov/a"},
			{URL: "https://" + string(cat) + ".example.gov/1"},
			{URL: "https://" + string(cat) + ".example.gov/2"},
		}}, nil
	}}

	urls, err := New(fs, newCaller(), Config{MaxURLs: 3}).Discover(context.Background(), sfRestaurant())
	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, "https://federal.example.gov/1", urls[0].URL)
	assert.Equal(t, "https://state.example.gov/1", urls[2].URL)
}

type recorder struct {
	mu   sync.Mutex
	envs []progress.Envelope
}

func (r *recorder) Emit(e progress.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, e)
}

func TestDiscover_EmitsProgress(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ctx := progress.WithTracker(context.Background(), progress.NewTracker("run", rec))

	_, err := New(&fakeSearcher{answer: canned}, newCaller(), Config{}).Discover(ctx, sfRestaurant())
	require.NoError(t, err)

	require.NotEmpty(t, rec.envs)
	assert.Equal(t, progress.TypeQueryBuilding, rec.envs[0].Event.Type())
	last := rec.envs[len(rec.envs)-1]
	assert.Equal(t, progress.TypeURLsDiscovered, last.Event.Type())
	assert.Equal(t, 20, last.Progress)
	assert.Equal(t, 5, last.Event.(progress.URLsDiscovered).Count)
}

func TestBuildQueries(t *testing.T) {
	t.Parallel()

	p := sfRestaurant()
	p.NAICSCode = "722511"
	p.SpecialFactors = []string{"Serves alcohol"}
	qs := BuildQueries(p)
	require.Len(t, qs, 4)
	assert.Equal(t, model.AllQueryCategories(), []model.QueryCategory{qs[0].Category, qs[1].Category, qs[2].Category, qs[3].Category})
	assert.Contains(t, qs[0].Prompt, "NAICS 722511")
	assert.Contains(t, qs[0].Prompt, "1500000")
	assert.Contains(t, qs[1].Prompt, "California")
	assert.Contains(t, qs[2].Prompt, "San Francisco, California")
	assert.Contains(t, qs[3].Prompt, "Serves alcohol")

	noCity := BuildQueries(model.BusinessProfile{State: "TX", Industry: "Retail"})
	assert.Contains(t, noCity[2].Prompt, "cities and counties in Texas")
}

func TestURLsInText(t *testing.T) {
	t.Parallel()

	got := urlsInText("Register at https://www.sos.ca.gov/business-programs. Also (https://www.ftb.ca.gov/file), " +
		"and [EDD](https://edd.ca.gov/en/payroll_taxes/)!")
	assert.Equal(t, []string{
		"https://www.sos.ca.gov/business-programs",
		"https://www.ftb.ca.gov/file",
		"https://edd.ca.gov/en/payroll_taxes/",
	}, got)
	assert.Empty(t, urlsInText("no links here"))
}
