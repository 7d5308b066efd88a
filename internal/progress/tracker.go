package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Envelope is an event stamped with the run's progress at emission time.
type Envelope struct {
	RunID    string
	Event    Event
	Progress int
	Time     time.Time
}

// MarshalJSON flattens the event fields next to type, message and progress.
func (e Envelope) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if e.Event != nil {
		raw, err := json.Marshal(e.Event)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		fields["type"] = e.Event.Type()
		fields["message"] = e.Event.Message()
	}
	fields["progress"] = e.Progress
	if e.RunID != "" {
		fields["run_id"] = e.RunID
	}
	if !e.Time.IsZero() {
		fields["timestamp"] = e.Time.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(fields)
}

// Tracker assigns progress to events and forwards them to a sink. Emitted
// progress never decreases within one Tracker. A nil *Tracker drops events.
type Tracker struct {
	mu    sync.Mutex
	runID string
	sink  Sink
	last  int
	now   func() time.Time
}

// NewTracker creates a Tracker for one run. A nil sink discards events.
func NewTracker(runID string, sink Sink) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{runID: runID, sink: sink, now: time.Now}
}

// Emit sends ev at fraction of the way through phase.
func (t *Tracker) Emit(phase Phase, fraction float64, ev Event) {
	t.send(Percent(phase, fraction), ev)
}

// Complete sends the terminal success event at 100%.
func (t *Tracker) Complete(ev Complete) {
	t.send(100, ev)
}

// Fail sends the terminal error event at the last reported progress.
func (t *Tracker) Fail(err error, fatal bool) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	t.send(0, Error{Err: msg, Fatal: fatal})
}

// Last returns the highest progress emitted so far.
func (t *Tracker) Last() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// send holds the lock across delivery so that concurrent emitters cannot
// reorder progress values. Sinks must not block.
func (t *Tracker) send(pct int, ev Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if pct < t.last {
		pct = t.last
	}
	t.last = pct

	env := Envelope{RunID: t.runID, Event: ev, Progress: pct, Time: t.now()}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("progress: sink panicked", zap.String("type", string(ev.Type())), zap.Any("panic", r))
		}
	}()
	t.sink.Emit(env)
}

type trackerKey struct{}

// WithTracker attaches t to ctx so pipeline stages can report progress
// without threading the tracker through every signature.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext returns the Tracker attached to ctx, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
