package progress

import (
	"go.uber.org/zap"
)

// Sink receives progress envelopes. Delivery is at-most-once; a sink must
// return quickly and never block the pipeline.
type Sink interface {
	Emit(Envelope)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Envelope)

// Emit calls f.
func (f SinkFunc) Emit(e Envelope) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Envelope) {})

// LogSink writes each event to the global zap logger.
type LogSink struct{}

// Emit logs e at info level, or warn for failures.
func (LogSink) Emit(e Envelope) {
	fields := []zap.Field{
		zap.String("run_id", e.RunID),
		zap.String("type", string(e.Event.Type())),
		zap.Int("progress", e.Progress),
	}
	switch ev := e.Event.(type) {
	case SiteFailed:
		zap.L().Warn("progress: "+ev.Message(), append(fields, zap.String("url", ev.URL))...)
	case Error:
		zap.L().Error("progress: "+ev.Message(), append(fields, zap.Bool("fatal", ev.Fatal))...)
	default:
		zap.L().Info("progress: "+ev.Message(), fields...)
	}
}

// ChanSink forwards events to a channel, dropping them when it is full.
type ChanSink chan Envelope

// Emit sends e without blocking.
func (c ChanSink) Emit(e Envelope) {
	select {
	case c <- e:
	default:
	}
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Emit forwards e to every non-nil sink.
func (m MultiSink) Emit(e Envelope) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
