package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/knowledge"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/pipeline"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

type fakeRunner struct {
	res *model.Result
	err error
	got model.BusinessProfile
}

func (f *fakeRunner) Run(ctx context.Context, p model.BusinessProfile, _ progress.Sink) (*model.Result, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func testKB(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.Default()
	require.NoError(t, err)
	return kb
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, nil, nil, 0)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, nil, nil, 0)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "compliance_run_duration_seconds")
}

func TestRouter_CheckSuccess(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{res: &model.Result{
		RunID:    "run-1",
		Coverage: model.CoverageReport{OverallScore: 82.5, RiskLevel: model.RiskLow},
	}}
	h := buildRouter(runner, nil, nil, time.Minute)

	rec := do(t, h, http.MethodPost, "/v1/checks", `{"state":"CA","city":"San Francisco","industry":"restaurant","employee_count":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got model.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.InDelta(t, 82.5, got.Coverage.OverallScore, 1e-9)

	assert.Equal(t, "CA", runner.got.State)
	assert.Equal(t, "San Francisco", runner.got.City)
	assert.Equal(t, 12, runner.got.EmployeeCount)
}

func TestRouter_CheckErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid profile", eris.Wrap(pipeline.ErrInvalidProfile, "pipeline: state is required"), http.StatusUnprocessableEntity},
		{"no urls", eris.Wrap(pipeline.ErrNoURLs, "pipeline: 0 discovered"), http.StatusFailedDependency},
		{"timeout", eris.Wrap(context.DeadlineExceeded, "pipeline: scrape"), http.StatusGatewayTimeout},
		{"auth", eris.Wrap(&resilience.AuthError{Provider: "firecrawl", StatusCode: 401, Err: eris.New("bad key")}, "pipeline: discover"), http.StatusBadGateway},
		{"credentials", eris.Wrap(pipeline.ErrMissingCredentials, "config"), http.StatusBadGateway},
		{"other", eris.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := buildRouter(&fakeRunner{err: tt.err}, nil, nil, 0)

			rec := do(t, h, http.MethodPost, "/v1/checks", `{"state":"CA","industry":"retail"}`)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouter_CheckBadBody(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	h := buildRouter(runner, nil, nil, 0)

	rec := do(t, h, http.MethodPost, "/v1/checks", `{"state":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestRouter_CheckNotConfigured(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, nil, nil, 0)

	rec := do(t, h, http.MethodPost, "/v1/checks", `{"state":"CA","industry":"retail"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CheckMethodNotAllowed(t *testing.T) {
	t.Parallel()
	h := buildRouter(&fakeRunner{}, nil, nil, 0)

	rec := do(t, h, http.MethodGet, "/v1/checks", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_KnowledgeAll(t *testing.T) {
	t.Parallel()
	kb := testKB(t)
	h := buildRouter(nil, kb, nil, 0)

	rec := do(t, h, http.MethodGet, "/v1/knowledge", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.KnowledgeBaseEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, kb.Len())
}

func TestRouter_KnowledgeFiltered(t *testing.T) {
	t.Parallel()
	kb := testKB(t)
	h := buildRouter(nil, kb, nil, 0)

	ids := func(target string) map[string]bool {
		rec := do(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []model.KnowledgeBaseEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		out := make(map[string]bool, len(entries))
		for _, e := range entries {
			out[e.ID] = true
		}
		return out
	}

	solo := ids("/v1/knowledge?state=CA&industry=retail&employees=0")
	assert.True(t, solo["fed-ein"])
	assert.False(t, solo["fed-i9"], "I-9 applies only to employers")

	staffed := ids("/v1/knowledge?state=CA&industry=retail&employees=20")
	assert.True(t, staffed["fed-i9"])
	assert.Greater(t, len(staffed), len(solo))
}

func TestRouter_KnowledgeBadEmployees(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, testKB(t), nil, 0)

	for _, v := range []string{"many", "-1"} {
		rec := do(t, h, http.MethodGet, "/v1/knowledge?state=CA&employees="+v, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, v)
	}
}

func TestRouter_KnowledgeNotLoaded(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, nil, nil, 0)

	rec := do(t, h, http.MethodGet, "/v1/knowledge", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	t.Parallel()
	h := buildRouter(nil, nil, []string{"https://app.example.com"}, 0)

	req := httptest.NewRequest(http.MethodOptions, "/v1/checks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCheckStatus_Wrapped(t *testing.T) {
	t.Parallel()
	err := eris.Wrap(eris.Wrap(pipeline.ErrNoURLs, "inner"), "outer")
	assert.Equal(t, http.StatusFailedDependency, checkStatus(err))
}
