package classify

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/llmjson"
	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/provider"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

// DefaultRequirementBatch is the number of requirements per LLM call.
const DefaultRequirementBatch = 20

type sourceVerdict struct {
	Index      int    `json:"index"`
	SourceType string `json:"source_type"`
}

// RequirementClassifier assigns source types to extracted requirements.
type RequirementClassifier struct {
	llm       provider.Completer
	caller    *resilience.Caller
	batchSize int
}

// NewRequirementClassifier creates a RequirementClassifier. A nil llm uses
// InferSourceType for every requirement.
func NewRequirementClassifier(llm provider.Completer, caller *resilience.Caller, batchSize int) *RequirementClassifier {
	if caller == nil {
		caller = resilience.NewCaller(resilience.CallerConfig{Name: "llm"})
	}
	if batchSize <= 0 {
		batchSize = DefaultRequirementBatch
	}
	return &RequirementClassifier{llm: llm, caller: caller, batchSize: batchSize}
}

// Classify returns a copy of reqs with SourceType and Metadata.Jurisdiction
// set. Batches run concurrently under the caller's limits; a batch whose
// response is missing or unparseable is classified with InferSourceType.
// Only authentication failures are returned.
func (c *RequirementClassifier) Classify(ctx context.Context, reqs []model.Requirement, p model.BusinessProfile) ([]model.Requirement, error) {
	out := make([]model.Requirement, len(reqs))
	copy(out, reqs)
	if len(out) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(out); start += c.batchSize {
		end := min(start+c.batchSize, len(out))
		batch := out[start:end]
		g.Go(func() error {
			return c.classifyBatch(gctx, batch, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// classifyBatch updates batch in place. Batches are disjoint subslices.
func (c *RequirementClassifier) classifyBatch(ctx context.Context, batch []model.Requirement, p model.BusinessProfile) error {
	types := make([]model.Jurisdiction, len(batch))

	if c.llm != nil {
		text, ok, err := resilience.Call(ctx, c.caller, "classify-requirements", func(ctx context.Context) (string, error) {
			return c.llm.Complete(ctx, requirementPrompt(batch, p))
		})
		switch {
		case err != nil && resilience.IsAuth(err):
			return err
		case err != nil:
			zap.L().Warn("classify: requirement batch failed, inferring source types",
				zap.Int("batch_size", len(batch)), zap.Error(err))
		case ok:
			verdicts, parsed := llmjson.ParseOr(text, func() []sourceVerdict { return nil })
			if !parsed {
				metrics.LLMFallbacks.WithLabelValues("classify_requirements").Inc()
			}
			for _, v := range verdicts {
				if v.Index < 0 || v.Index >= len(batch) {
					continue
				}
				if j, ok := model.ParseJurisdiction(v.SourceType); ok {
					types[v.Index] = j
				}
			}
		}
	}

	for i := range batch {
		j := types[i]
		if j == "" {
			j = InferSourceType(batch[i])
		}
		batch[i].SourceType = j
		batch[i].Metadata.Jurisdiction = j
	}
	return nil
}
