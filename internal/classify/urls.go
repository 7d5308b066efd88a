package classify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/llmjson"
	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

type urlVerdict struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Relevant *bool  `json:"relevant"`
	Reason   string `json:"reason"`
}

// URLClassifier filters discovered URLs for relevance in one LLM call.
type URLClassifier struct {
	llm    provider.Completer
	caller *resilience.Caller
}

// NewURLClassifier creates a URLClassifier. A nil llm always uses the
// deterministic fallback.
func NewURLClassifier(llm provider.Completer, caller *resilience.Caller) *URLClassifier {
	if caller == nil {
		caller = resilience.NewCaller(resilience.CallerConfig{Name: "llm"})
	}
	return &URLClassifier{llm: llm, caller: caller}
}

// FallbackURLs tags every URL with BasicCategory and keeps all of them.
func FallbackURLs(urls []model.DiscoveredURL) []model.ClassifiedURL {
	out := make([]model.ClassifiedURL, len(urls))
	for i, u := range urls {
		out[i] = model.ClassifiedURL{
			DiscoveredURL: u,
			Category:      BasicCategory(u.URL),
			Relevant:      true,
			Reason:        "fallback",
		}
	}
	return out
}

// Classify returns one ClassifiedURL per input, in input order. fallback
// reports whether the deterministic classifier replaced the LLM answer. Only
// authentication failures are returned as errors.
func (c *URLClassifier) Classify(ctx context.Context, urls []model.DiscoveredURL, p model.BusinessProfile) (out []model.ClassifiedURL, fallback bool, err error) {
	if len(urls) == 0 {
		return nil, false, nil
	}
	if c.llm == nil {
		return FallbackURLs(urls), true, nil
	}

	text, ok, err := resilience.Call(ctx, c.caller, "classify-urls", func(ctx context.Context) (string, error) {
		return c.llm.Complete(ctx, urlPrompt(urls, p))
	})
	if err != nil {
		if resilience.IsAuth(err) {
			return nil, false, err
		}
		zap.L().Warn("classify: url classification failed, using fallback", zap.Error(err))
	}
	if err != nil || !ok {
		metrics.LLMFallbacks.WithLabelValues("classify_urls").Inc()
		return FallbackURLs(urls), true, nil
	}

	verdicts, parsed := llmjson.ParseOr(text, func() []urlVerdict { return nil })
	if !parsed {
		metrics.LLMFallbacks.WithLabelValues("classify_urls").Inc()
		zap.L().Warn("classify: unparseable url classification, using fallback",
			zap.Int("response_len", len(text)))
		return FallbackURLs(urls), true, nil
	}

	out = FallbackURLs(urls)
	answered := make([]bool, len(urls))
	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(urls) || answered[v.Index] {
			continue
		}
		answered[v.Index] = true
		cu := &out[v.Index]
		if j, ok := model.ParseJurisdiction(v.Category); ok {
			cu.Category = j
		}
		if v.Relevant != nil {
			cu.Relevant = *v.Relevant
		}
		cu.Reason = v.Reason
	}

	missing := 0
	for _, a := range answered {
		if !a {
			missing++
		}
	}
	if missing > 0 {
		zap.L().Debug("classify: llm skipped urls, kept with fallback category",
			zap.Int("missing", missing))
	}
	return out, false, nil
}

// Relevant returns the URLs marked relevant.
func Relevant(urls []model.ClassifiedURL) []model.ClassifiedURL {
	var out []model.ClassifiedURL
	for _, u := range urls {
		if u.Relevant {
			out = append(out, u)
		}
	}
	return out
}
