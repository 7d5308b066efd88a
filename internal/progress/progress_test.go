package progress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *recorder) Emit(e Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, e)
}

func TestPhaseTable_Contiguous(t *testing.T) {
	t.Parallel()

	prevHi := -1
	for i, p := range Phases() {
		lo, hi := Range(p)
		assert.Less(t, lo, hi, p)
		if i > 0 {
			assert.Equal(t, prevHi, lo, "phase %s must start where the previous ended", p)
		}
		prevHi = hi
	}
	assert.Equal(t, 100, prevHi)
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, Percent(PhaseDiscovery, 0))
	assert.Equal(t, 20, Percent(PhaseDiscovery, 1))
	assert.Equal(t, 60, Percent(PhaseScraping, 0.5))
	assert.Equal(t, 30, Percent(PhaseScraping, -3))
	assert.Equal(t, 100, Percent(PhaseProcessing, 7))
}

func TestTracker_Monotonic(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	tr := NewTracker("run-1", rec)
	tr.Emit(PhaseScraping, 0.5, ScrapingSite{URL: "https://a.gov"})
	tr.Emit(PhaseDiscovery, 1, URLsDiscovered{Count: 3})
	tr.Emit(PhaseProcessing, 0, AggregationComplete{Before: 4, After: 3})
	tr.Fail(errors.New("boom"), true)

	require.Len(t, rec.envs, 4)
	assert.Equal(t, 60, rec.envs[0].Progress)
	assert.Equal(t, 60, rec.envs[1].Progress)
	assert.Equal(t, 90, rec.envs[2].Progress)
	assert.Equal(t, 90, rec.envs[3].Progress)
	assert.Equal(t, TypeError, rec.envs[3].Event.Type())
	assert.Equal(t, 90, tr.Last())
}

func TestTracker_MonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("emitted progress never decreases", prop.ForAll(
		func(phaseIdx []int, fractions []float64) bool {
			rec := &recorder{}
			tr := NewTracker("run", rec)
			all := Phases()
			for i, idx := range phaseIdx {
				f := 0.0
				if i < len(fractions) {
					f = fractions[i]
				}
				tr.Emit(all[idx], f, URLsFiltered{})
			}
			last := 0
			for _, e := range rec.envs {
				if e.Progress < last || e.Progress > 100 {
					return false
				}
				last = e.Progress
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.Float64Range(-1, 2)),
	))

	properties.TestingRun(t)
}

func TestTracker_ConcurrentEmitsStayOrdered(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	tr := NewTracker("run", rec)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Emit(PhaseScraping, float64(i)/50, SiteComplete{URL: "u"})
		}(i)
	}
	wg.Wait()

	require.Len(t, rec.envs, 50)
	for i := 1; i < len(rec.envs); i++ {
		assert.GreaterOrEqual(t, rec.envs[i].Progress, rec.envs[i-1].Progress)
	}
}

func TestTracker_SinkPanicIsContained(t *testing.T) {
	t.Parallel()

	tr := NewTracker("run", SinkFunc(func(Envelope) { panic("sink down") }))
	assert.NotPanics(t, func() {
		tr.Complete(Complete{RunID: "run"})
	})
	assert.Equal(t, 100, tr.Last())
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	t.Parallel()

	env := Envelope{RunID: "r1", Event: SiteFailed{URL: "https://x.gov", Error: "timeout", Done: 3, Total: 5}, Progress: 66}
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "site-failed", got["type"])
	assert.Equal(t, "https://x.gov", got["url"])
	assert.Equal(t, "timeout", got["error"])
	assert.EqualValues(t, 66, got["progress"])
	assert.Equal(t, "r1", got["run_id"])
	assert.Contains(t, got["message"], "timeout")
}

func TestSinks(t *testing.T) {
	t.Parallel()

	ch := make(ChanSink, 1)
	ch.Emit(Envelope{Event: Complete{}})
	ch.Emit(Envelope{Event: Complete{}}) // dropped, channel full
	assert.Len(t, ch, 1)

	rec := &recorder{}
	MultiSink{rec, nil, LogSink{}, Discard}.Emit(Envelope{Event: Error{Err: "x"}})
	assert.Len(t, rec.envs, 1)
}

func TestEvents_TypesAreDistinct(t *testing.T) {
	t.Parallel()

	events := []Event{
		QueryBuilding{}, URLsDiscovered{}, URLsFiltered{}, ScrapingSite{}, SiteComplete{},
		SiteFailed{}, AggregationComplete{}, AIDeduplicationComplete{}, Complete{}, Error{},
	}
	seen := map[Type]bool{}
	for _, e := range events {
		assert.False(t, seen[e.Type()], e.Type())
		seen[e.Type()] = true
		assert.NotEmpty(t, e.Message()+string(e.Type()))
	}
	assert.Len(t, seen, 10)
}

func TestTracker_NilAndContext(t *testing.T) {
	t.Parallel()

	var nilTracker *Tracker
	assert.NotPanics(t, func() {
		nilTracker.Emit(PhaseScraping, 0.5, ScrapingSite{URL: "https://irs.gov"})
		nilTracker.Complete(Complete{})
		nilTracker.Fail(nil, true)
	})
	assert.Zero(t, nilTracker.Last())

	assert.Nil(t, FromContext(context.Background()))

	rec := &recorder{}
	tr := NewTracker("run-1", rec)
	ctx := WithTracker(context.Background(), tr)
	FromContext(ctx).Emit(PhaseDiscovery, 1, URLsDiscovered{Count: 3})
	require.Len(t, rec.envs, 1)
	assert.Equal(t, 20, rec.envs[0].Progress)
}
