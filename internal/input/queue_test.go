package input

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"
)

func TestQueueDebounces(t *testing.T) {
	q := NewQueue()
	assert.Assert(t, q.Push(NextFunction))
	assert.Assert(t, !q.Push(NextFunction), "held button is ignored")
	assert.Assert(t, q.Push(PrevFunction))
	assert.Assert(t, q.Push(Stop))

	assert.DeepEqual(t, q.Drain(), []Event{NextFunction, PrevFunction, Stop})
	assert.Equal(t, len(q.Drain()), 0)

	assert.Assert(t, q.Push(NextFunction), "accepted again after drain")
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(Stop)
		}()
	}
	wg.Wait()
	assert.DeepEqual(t, q.Drain(), []Event{Stop})
}

func TestWatchButtonsWithoutPins(t *testing.T) {
	err := WatchButtons(context.Background(), Buttons{}, NewQueue(), zaptest.NewLogger(t))
	assert.NilError(t, err)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, NextFunction.String(), "next")
	assert.Equal(t, Event(0).String(), "none")
}
