package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/jina"
)

// errJinaUnusable marks a 200 response that holds a challenge page or no text.
var errJinaUnusable = eris.New("jina: response needs fallback")

// JinaFetcher reads pages through Jina Reader. Three consecutive failures
// open its circuit for a minute so the chain stops paying for a flaky
// upstream.
type JinaFetcher struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaFetcher creates a JinaFetcher.
func NewJinaFetcher(client jina.Client) *JinaFetcher {
	return &JinaFetcher{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     time.Minute,
			ShouldTrip: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("scrape: jina circuit changed state",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// Name implements Fetcher.
func (j *JinaFetcher) Name() string { return "jina" }

// Supports reports false while the circuit is open.
func (j *JinaFetcher) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Fetch implements Fetcher.
func (j *JinaFetcher) Fetch(ctx context.Context, targetURL string) (*model.ScrapedPage, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*model.ScrapedPage, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		cost.FromContext(ctx).Jina(resp.Data.Usage.Tokens)
		if needsFallback(resp) {
			return nil, errJinaUnusable
		}
		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &model.ScrapedPage{
			URL:        pageURL,
			Title:      resp.Data.Title,
			Markdown:   resp.Data.Content,
			StatusCode: 200,
			Source:     j.Name(),
			FetchedAt:  time.Now().UTC(),
		}, nil
	})
}

// needsFallback reports whether a Reader response lacks usable content.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < localMinBody {
		return true
	}
	if len(content) < 1000 {
		if blocked, _ := detectBlockText(strings.ToLower(content), len(content)); blocked {
			return true
		}
	}
	return false
}
