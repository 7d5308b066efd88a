package cost

import (
	"context"
	"sync"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Meter accumulates provider usage for a single run. A nil *Meter is valid
// and records nothing.
type Meter struct {
	mu    sync.Mutex
	calc  *Calculator
	usage model.TokenUsage
}

// NewMeter creates a Meter that prices usage with calc. A nil calc counts
// usage without pricing it.
func NewMeter(calc *Calculator) *Meter {
	return &Meter{calc: calc}
}

type meterKey struct{}

// WithMeter attaches m to ctx.
func WithMeter(ctx context.Context, m *Meter) context.Context {
	return context.WithValue(ctx, meterKey{}, m)
}

// FromContext returns the Meter attached to ctx, or nil.
func FromContext(ctx context.Context) *Meter {
	m, _ := ctx.Value(meterKey{}).(*Meter)
	return m
}

// LLM records one completion.
func (m *Meter) LLM(modelID string, t Tokens) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.InputTokens += t.Input
	m.usage.OutputTokens += t.Output
	m.usage.CacheCreationTokens += t.CacheWrite
	m.usage.CacheReadTokens += t.CacheRead
	if m.calc != nil {
		m.usage.Cost += m.calc.LLM(modelID, t)
	}
}

// Search records one search query.
func (m *Meter) Search() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.SearchQueries++
	if m.calc != nil {
		m.usage.Cost += m.calc.Search(1)
	}
}

// Scrape records scrape credits consumed.
func (m *Meter) Scrape(credits int) {
	if m == nil || credits <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.ScrapeCredits += credits
	if m.calc != nil {
		m.usage.Cost += m.calc.Scrape(credits)
	}
}

// Jina records Jina Reader tokens.
func (m *Meter) Jina(tokens int) {
	if m == nil || tokens <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calc != nil {
		m.usage.Cost += m.calc.Reader(tokens)
	}
}

// Usage returns a snapshot of the accumulated usage.
func (m *Meter) Usage() model.TokenUsage {
	if m == nil {
		return model.TokenUsage{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
