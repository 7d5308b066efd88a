package progress

// Phase is a coarse pipeline stage with a fixed slice of the 0..100 range.
type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseFiltering  Phase = "filtering"
	PhaseScraping   Phase = "scraping"
	PhaseProcessing Phase = "processing"
)

type span struct{ lo, hi int }

// phases is the single source of progress ranges. Ranges are contiguous and
// ascending, which is what keeps emitted progress non-decreasing.
var phases = map[Phase]span{
	PhaseDiscovery:  {5, 20},
	PhaseFiltering:  {20, 30},
	PhaseScraping:   {30, 90},
	PhaseProcessing: {90, 100},
}

// Phases returns the phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseDiscovery, PhaseFiltering, PhaseScraping, PhaseProcessing}
}

// Range returns the [lo, hi] progress range of p. Unknown phases map to 0..0.
func Range(p Phase) (lo, hi int) {
	s := phases[p]
	return s.lo, s.hi
}

// Percent maps a completion fraction within p onto the overall range.
// Fractions outside [0,1] are clamped.
func Percent(p Phase, fraction float64) int {
	lo, hi := Range(p)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return lo + int(float64(hi-lo)*fraction+0.5)
}
