package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/cost"
	"github.com/sells-group/compliance-cli/internal/resilience"
	"github.com/sells-group/compliance-cli/pkg/anthropic"
)

const claudeSystemPrompt = "You are a regulatory compliance analyst for US small businesses. " +
	"You classify government and industry sources and extract compliance obligations. " +
	"Use only facts present in the input. Respond with JSON only, no prose."

// Claude adapts an Anthropic client to Completer.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaude wraps client. maxTokens <= 0 defaults to 4096.
func NewClaude(client anthropic.Client, model string, maxTokens int64) *Claude {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Claude{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends prompt as a single user turn at temperature 0.
func (c *Claude) Complete(ctx context.Context, prompt string) (string, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(claudeSystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		if status := anthropic.StatusCode(err); status != 0 {
			return "", resilience.ClassifyStatus("anthropic", status, err)
		}
		return "", eris.Wrap(err, "anthropic: complete")
	}

	u := resp.Usage
	cost.FromContext(ctx).LLM(c.model, cost.Tokens{
		Input:      int(u.InputTokens),
		Output:     int(u.OutputTokens),
		CacheWrite: int(u.CacheCreationInputTokens),
		CacheRead:  int(u.CacheReadInputTokens),
	})
	log := zap.L().With(zap.String("model", c.model))
	log.Debug("anthropic: completion",
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
	)
	if resp.Truncated() {
		log.Warn("anthropic: completion hit max_tokens", zap.Int64("max_tokens", c.maxTokens))
	}

	return resp.Text(), nil
}
