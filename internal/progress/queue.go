package progress

import (
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Queue is an unbounded FIFO between one producer (the run) and one consumer
// (the transport). Emit never blocks; events are delivered on Events() in
// order, and the channel closes after the terminal event has been delivered.
type Queue struct {
	mu      sync.Mutex
	pending []model.Event
	closed  bool
	wake    chan struct{}
	out     chan model.Event
}

// NewQueue starts the delivery goroutine.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		out:  make(chan model.Event),
	}
	go q.pump()
	return q
}

// Emit implements Sink.
func (q *Queue) Emit(ev model.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, ev)
	if ev.Terminal() {
		q.closed = true
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Events returns the delivery channel.
func (q *Queue) Events() <-chan model.Event {
	return q.out
}

func (q *Queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, ev := range batch {
			q.out <- ev
			if ev.Terminal() {
				return
			}
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-q.wake
		}
	}
}
