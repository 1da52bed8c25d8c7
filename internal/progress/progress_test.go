package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Emit(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestReporter_StepsAndTerminal(t *testing.T) {
	rec := &recorder{}
	r := NewReporter(rec)

	r.Step(1, "Searching Exa for liquidity signals...")
	r.Step(2, "Found %d/%d verified leads.", 3, 10)
	r.Result(model.Event{Outcome: model.OutcomeSufficient})
	r.Error("late")
	r.Step(4, "Done!")

	require.Len(t, rec.events, 3)
	assert.Equal(t, model.Event{Type: model.EventProgress, Step: 1, Total: 4, Message: "Searching Exa for liquidity signals..."}, rec.events[0])
	assert.Equal(t, "Found 3/10 verified leads.", rec.events[1].Message)
	assert.Equal(t, model.EventResult, rec.events[2].Type)
}

func TestReporter_ErrorIsTerminal(t *testing.T) {
	rec := &recorder{}
	r := NewReporter(rec)
	r.Error("missing EXA_API_KEY")
	r.Result(model.Event{})

	require.Len(t, rec.events, 1)
	assert.Equal(t, model.Event{Type: model.EventError, Message: "missing EXA_API_KEY"}, rec.events[0])
}

func TestReporter_NilSink(t *testing.T) {
	r := NewReporter(nil)
	assert.NotPanics(t, func() {
		r.Step(1, "x")
		r.Error("y")
		r.Step(2, "z")
	})
}

func collect(t *testing.T, q *Queue) []model.Event {
	t.Helper()
	var got []model.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-q.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("queue did not close")
		}
	}
}

func TestQueue_OrderedAndClosesAfterTerminal(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 100; i++ {
		q.Emit(model.Event{Type: model.EventProgress, Step: i})
	}
	q.Emit(model.Event{Type: model.EventResult})
	q.Emit(model.Event{Type: model.EventProgress, Step: 999})

	got := collect(t, q)
	require.Len(t, got, 101)
	for i := 0; i < 100; i++ {
		assert.Equal(t, i+1, got[i].Step)
	}
	assert.Equal(t, model.EventResult, got[100].Type)
}

func TestQueue_EmitNeverBlocksWithoutConsumer(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			q.Emit(model.Event{Type: model.EventProgress, Step: i})
		}
		q.Emit(model.Event{Type: model.EventError, Message: "boom"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked with no consumer")
	}

	got := collect(t, q)
	require.Len(t, got, 10_001)
	assert.Equal(t, model.EventError, got[len(got)-1].Type)
}

func TestQueue_InterleavedProducerConsumer(t *testing.T) {
	q := NewQueue()
	r := NewReporter(q)
	go func() {
		for i := 1; i <= 3; i++ {
			r.Step(i, "step %d", i)
			time.Sleep(time.Millisecond)
		}
		r.Result(model.Event{})
	}()

	got := collect(t, q)
	require.Len(t, got, 4)
	assert.Equal(t, "step 3", got[2].Message)
	assert.True(t, got[3].Terminal())
}
