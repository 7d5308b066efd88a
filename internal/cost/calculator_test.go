package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
			"sonnet": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		},
		Jina:       JinaRate{PerMTok: 0.02},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.0, CreditsIncluded: 3000},
	}
}

func TestCalculator_LLM(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		tokens Tokens
		want   float64
	}{
		{"input and output", "haiku", Tokens{Input: 1_000_000, Output: 100_000}, 0.80 + 0.40},
		// 0.40 in + 0.20 out + 0.20 cache write + 0.024 cache read
		{"cache tokens", "haiku", Tokens{Input: 500_000, Output: 50_000, CacheWrite: 200_000, CacheRead: 300_000}, 0.824},
		{"sonnet", "sonnet", Tokens{Input: 1_000_000, Output: 100_000}, 4.50},
		{"family match", "claude-sonnet-9-20300101", Tokens{Input: 1_000_000}, 3.00},
		{"family match is case-insensitive", "Claude-HAIKU-next", Tokens{Output: 1_000_000}, 4.00},
		{"unknown family", "gpt-4o", Tokens{Input: 1_000_000, Output: 1_000_000}, 0},
		{"no tokens", "haiku", Tokens{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.LLM(tt.model, tt.tokens), 1e-6)
		})
	}
}

func TestCalculator_FamilyTieBreak(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{Anthropic: map[string]ModelRate{
		"claude-haiku-3":   {Input: 0.25},
		"claude-haiku-4-5": {Input: 1.00},
	}})
	for i := 0; i < 20; i++ {
		assert.InDelta(t, 1.00, calc.LLM("claude-haiku-x", Tokens{Input: 1_000_000}), 1e-9)
	}
}

func TestTokens_Total(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 10, Tokens{Input: 1, Output: 2, CacheWrite: 3, CacheRead: 4}.Total())
}

func TestCalculator_Reader(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.02, calc.Reader(1_000_000), 1e-9)
	assert.InDelta(t, 2150.0/1e6*0.02, calc.Reader(2150), 1e-12)
	assert.Zero(t, calc.Reader(0))
}

func TestCalculator_Search(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.005, calc.Search(1), 1e-9)
	assert.InDelta(t, 0.05, calc.Search(10), 1e-9)
}

func TestCalculator_Scrape(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 19.0/3000*5, calc.Scrape(5), 1e-9)
	assert.Zero(t, NewCalculator(Rates{}).Scrape(5))
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()
	assert.Len(t, rates.Anthropic, 3)
	assert.InDelta(t, 1.00, rates.Anthropic["claude-haiku-4-5-20251001"].Input, 1e-9)
	assert.InDelta(t, 0.1, rates.Anthropic["claude-opus-4-6"].CacheReadMul, 1e-9)

	rates.Anthropic["mutated"] = ModelRate{}
	assert.NotContains(t, DefaultRates().Anthropic, "mutated")
}
