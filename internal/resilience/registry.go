package resilience

import "sync"

// Provider names used for the shared Callers.
const (
	ProviderSearch = "search"
	ProviderScrape = "scrape"
	ProviderLLM    = "llm"
)

// Registry holds one Caller per provider so every component that talks to
// the same provider shares its concurrency ceiling and quota.
type Registry struct {
	mu      sync.Mutex
	callers map[string]*Caller
}

// NewRegistry creates a Registry with a Caller for each config.
func NewRegistry(cfgs ...CallerConfig) *Registry {
	r := &Registry{callers: make(map[string]*Caller, len(cfgs))}
	for _, cfg := range cfgs {
		r.callers[cfg.Name] = NewCaller(cfg)
	}
	return r
}

// Get returns the Caller for name, creating one with default limits the
// first time an unconfigured name is requested.
func (r *Registry) Get(name string) *Caller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.callers[name]; ok {
		return c
	}
	c := NewCaller(CallerConfig{Name: name})
	r.callers[name] = c
	return c
}
