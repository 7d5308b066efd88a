package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/jina"
)

type fakeJina struct {
	resp  *jina.ReadResponse
	err   error
	calls int
}

func (f *fakeJina) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeJina) Search(_ context.Context, _ string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
	return nil, errors.New("not implemented")
}

var longContent = "# Food Facility Permits\n\n" + strings.Repeat("A health permit is required before operating a retail food facility. ", 5)

func TestJinaFetcher_Success(t *testing.T) {
	t.Parallel()
	fj := &fakeJina{resp: &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			URL:     "https://publichealth.lacounty.gov/eh/business/food-facilities.htm",
			Title:   "Food Facilities",
			Content: longContent,
			Usage:   jina.ReadUsage{Tokens: 800},
		},
	}}
	meter := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
	ctx := cost.WithMeter(context.Background(), meter)

	page, err := NewJinaFetcher(fj).Fetch(ctx, "https://publichealth.lacounty.gov/eh/business/food-facilities.htm")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, "Food Facilities", page.Title)
	assert.Equal(t, longContent, page.Markdown)
	assert.Greater(t, meter.Usage().Cost, 0.0)
}

func TestJinaFetcher_UnusableResponse(t *testing.T) {
	t.Parallel()
	fj := &fakeJina{resp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "short"}}}

	_, err := NewJinaFetcher(fj).Fetch(context.Background(), "https://www.ca.gov/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs fallback")
}

func TestJinaFetcher_CircuitOpensAfterThreeFailures(t *testing.T) {
	t.Parallel()
	fj := &fakeJina{err: errors.New("connection refused")}
	f := NewJinaFetcher(fj)

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "https://www.ca.gov/")
		require.Error(t, err)
	}
	assert.False(t, f.Supports("https://www.ca.gov/"))

	_, err := f.Fetch(context.Background(), "https://www.ca.gov/")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 3, fj.calls)
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil", nil, true},
		{"error code", &jina.ReadResponse{Code: 451}, true},
		{"short", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "too short"}}, true},
		{"challenge", &jina.ReadResponse{Code: 200, Data: jina.ReadData{
			Content: "Just a moment... Checking your browser before accessing www.sos.state.tx.us. This process is automatic.",
		}}, true},
		{"valid", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: longContent}}, false},
		{"code zero", &jina.ReadResponse{Data: jina.ReadData{Content: longContent}}, false},
		{"long page with marker", &jina.ReadResponse{Code: 200, Data: jina.ReadData{
			Content: strings.Repeat(longContent, 4) + " checking your browser",
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
