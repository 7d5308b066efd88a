// Package cost prices provider usage and accumulates it per compliance run.
package cost

import "strings"

// Rates is the price list for every metered provider.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaRate             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlRate        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate prices one model in USD per million tokens. Cache multipliers
// apply to the input price.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// FirecrawlRate amortizes a monthly plan over its included credits.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Tokens is the token breakdown of one LLM response.
type Tokens struct {
	Input      int
	Output     int
	CacheWrite int
	CacheRead  int
}

// Total is the sum of every token class.
func (t Tokens) Total() int {
	return t.Input + t.Output + t.CacheWrite + t.CacheRead
}

// Calculator converts usage into USD.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// LLM prices one completion. Models missing from the price list are priced
// as the listed model of the same family (haiku, sonnet, opus); anything
// else costs 0.
func (c *Calculator) LLM(modelID string, t Tokens) float64 {
	rate, ok := c.modelRate(modelID)
	if !ok {
		return 0
	}
	perTok := func(n int, price float64) float64 { return float64(n) / 1e6 * price }
	return perTok(t.Input, rate.Input) +
		perTok(t.Output, rate.Output) +
		perTok(t.CacheWrite, rate.Input*rate.CacheWriteMul) +
		perTok(t.CacheRead, rate.Input*rate.CacheReadMul)
}

func (c *Calculator) modelRate(modelID string) (ModelRate, bool) {
	if r, ok := c.rates.Anthropic[modelID]; ok {
		return r, true
	}
	fam := family(modelID)
	if fam == "" {
		return ModelRate{}, false
	}
	var (
		best   ModelRate
		bestID string
	)
	// Pick deterministically when several listed models share the family.
	for id, r := range c.rates.Anthropic {
		if family(id) == fam && (bestID == "" || id > bestID) {
			best, bestID = r, id
		}
	}
	return best, bestID != ""
}

func family(modelID string) string {
	id := strings.ToLower(modelID)
	for _, f := range []string{"haiku", "sonnet", "opus"} {
		if strings.Contains(id, f) {
			return f
		}
	}
	return ""
}

// Reader prices Jina Reader tokens.
func (c *Calculator) Reader(tokens int) float64 {
	return float64(tokens) / 1e6 * c.rates.Jina.PerMTok
}

// Search prices n search queries.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.Perplexity.PerQuery
}

// Scrape prices scrape credits at the plan's effective per-credit rate.
func (c *Calculator) Scrape(credits int) float64 {
	fc := c.rates.Firecrawl
	if fc.CreditsIncluded <= 0 {
		return 0
	}
	return float64(credits) * fc.PlanMonthly / fc.CreditsIncluded
}

// DefaultRates returns list prices. Each call returns a fresh map.
func DefaultRates() Rates {
	cached := func(in, out float64) ModelRate {
		return ModelRate{Input: in, Output: out, CacheWriteMul: 1.25, CacheReadMul: 0.1}
	}
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  cached(1.00, 5.00),
			"claude-sonnet-4-5-20250929": cached(3.00, 15.00),
			"claude-opus-4-6":            cached(15.00, 75.00),
		},
		Jina:       JinaRate{PerMTok: 0.02},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
