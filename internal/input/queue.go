// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package input turns button presses into events that the acquisition loop
// drains at well defined points.
package input

import "sync"

// Event is a user input.
type Event int

const (
	NextFunction Event = iota + 1
	PrevFunction
	Stop
)

func (e Event) String() string {
	switch e {
	case NextFunction:
		return "next"
	case PrevFunction:
		return "prev"
	case Stop:
		return "stop"
	default:
		return "none"
	}
}

// Queue collects events from any goroutine. A button that is already pending
// is ignored until the queue is drained, which debounces held or bouncing
// buttons. Stop is always kept.
type Queue struct {
	mu      sync.Mutex
	events  []Event
	pending map[Event]bool
}

func NewQueue() *Queue {
	return &Queue{pending: make(map[Event]bool)}
}

// Push records e. It reports false when e was dropped as a repeat.
func (q *Queue) Push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[e] {
		return false
	}
	q.pending[e] = true
	q.events = append(q.events, e)
	return true
}

// Drain returns the queued events in arrival order and empties the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	clear(q.pending)
	return out
}
