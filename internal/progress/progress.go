// Package progress carries a run's ordered event stream from the pipeline to
// whoever is watching it.
package progress

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// TotalSteps is the number of progress stages in a run.
const TotalSteps = 4

// Sink receives events. Emit must not block the caller for long.
type Sink interface {
	Emit(ev model.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev model.Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(model.Event) {})

// Reporter stamps step numbers on progress events and guarantees the stream
// ends with exactly one terminal event.
type Reporter struct {
	sink Sink

	mu   sync.Mutex
	done bool
}

// NewReporter wraps sink.
func NewReporter(sink Sink) *Reporter {
	if sink == nil {
		sink = Discard
	}
	return &Reporter{sink: sink}
}

// Step emits a progress event for stage step of TotalSteps.
func (r *Reporter) Step(step int, format string, args ...any) {
	r.emit(model.Event{
		Type:    model.EventProgress,
		Step:    step,
		Total:   TotalSteps,
		Message: fmt.Sprintf(format, args...),
	})
}

// Result emits the terminal result event.
func (r *Reporter) Result(ev model.Event) {
	ev.Type = model.EventResult
	r.emit(ev)
}

// Error emits the terminal error event.
func (r *Reporter) Error(message string) {
	r.emit(model.Event{Type: model.EventError, Message: message})
}

func (r *Reporter) emit(ev model.Event) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		zap.L().Debug("progress: event after terminal dropped", zap.String("type", string(ev.Type)))
		return
	}
	if ev.Terminal() {
		r.done = true
	}
	r.mu.Unlock()

	r.sink.Emit(ev)
}
