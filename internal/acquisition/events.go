// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/gps"
)

// EventKind names what happened in a cycle.
type EventKind string

const (
	EventFix     EventKind = "fix"
	EventNoData  EventKind = "nodata"
	EventTimeout EventKind = "timeout"
)

// Event is published after every fix and every no-data condition.
type Event struct {
	Kind       EventKind `json:"kind"`
	Time       time.Time `json:"time"`
	Fix        gps.Fix   `json:"fix"`
	Motion     string    `json:"motion"`
	Function   string    `json:"function"`
	EmptyReads int       `json:"empty_reads,omitempty"`
	LoopCount  int       `json:"loop_count"`
}

// Publisher forwards events, e.g. to a message broker or web clients.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// publish stamps ev with the loop state and hands it to every publisher.
// The last good fix travels with no-data events for display continuity.
func (l *Loop) publish(ctx context.Context, ev Event) {
	ev.Time = l.now().UTC()
	ev.Fix = l.state.Fix
	ev.Motion = l.state.Motion.String()
	ev.Function = l.state.Function.String()
	ev.LoopCount = l.state.LoopCount
	for _, p := range l.pubs {
		if err := p.Publish(ctx, ev); err != nil {
			l.log.Warn("publish failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}
}
