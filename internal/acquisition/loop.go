// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition runs the read, assemble and classify cycle that turns a
// GPS line stream into display requests and fix events.
package acquisition

import (
	"context"
	"errors"
	"runtime"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/display"
	"github.com/relabs-tech/gps_matrix/internal/gps"
	"github.com/relabs-tech/gps_matrix/internal/input"
	"github.com/relabs-tech/gps_matrix/internal/metrics"
)

var (
	// ErrLivenessTimeout ends a cycle after too many consecutive empty reads.
	ErrLivenessTimeout = errors.New("acquisition: no data from GPS receiver")
	// ErrStopped is returned when the user pressed the stop button.
	ErrStopped = errors.New("acquisition: stopped by user")
)

// Options tunes the loop. Non-positive counts are replaced by the values of
// DefaultOptions.
type Options struct {
	NoDataEvery     int           // empty reads between "no data" signals
	LivenessTimeout int           // empty reads that abort a cycle
	Backoff         time.Duration // wait after an empty read
	MaxLoopCount    int           // cycles before the loop counter wraps
	Reclaim         bool          // run the GC between read attempts
	VerifyChecksum  bool
	Function        display.Function
}

func DefaultOptions() Options {
	return Options{
		NoDataEvery:     100,
		LivenessTimeout: 1000,
		Backoff:         300 * time.Millisecond,
		MaxLoopCount:    14,
		Function:        display.Track,
	}
}

// State is owned by the Loop and only changed from its goroutine.
type State struct {
	Fix       gps.Fix
	Motion    gps.MotionState
	Function  display.Function
	LoopCount int
	Fixes     int

	trackAnnounced bool
}

// Loop is the acquisition state machine. It is single threaded; only the
// input queue may be written from other goroutines.
type Loop struct {
	src     gps.LineSource
	asm     *gps.Assembler
	track   *gps.TrackResolver
	sink    display.Sink
	inputs  *input.Queue
	pubs    []Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	opts    Options
	state   State

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New returns a Loop reading from src and rendering through sink.
func New(src gps.LineSource, sink display.Sink, log *zap.Logger, opts Options) *Loop {
	def := DefaultOptions()
	if opts.NoDataEvery <= 0 {
		opts.NoDataEvery = def.NoDataEvery
	}
	if opts.LivenessTimeout <= 0 {
		opts.LivenessTimeout = def.LivenessTimeout
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.MaxLoopCount <= 0 {
		opts.MaxLoopCount = def.MaxLoopCount
	}
	return &Loop{
		src:   src,
		asm:   gps.NewAssembler(opts.VerifyChecksum),
		track: gps.NewTrackResolver(),
		sink:  sink,
		log:   log,
		opts:  opts,
		state: State{Function: opts.Function, Motion: gps.NoData},
		sleep: sleepContext,
		now:   time.Now,
	}
}

// WithInputs lets button events from q steer the loop.
func (l *Loop) WithInputs(q *input.Queue) *Loop {
	l.inputs = q
	return l
}

// WithPublishers adds event consumers.
func (l *Loop) WithPublishers(p ...Publisher) *Loop {
	l.pubs = append(l.pubs, p...)
	return l
}

func (l *Loop) WithMetrics(m *metrics.Metrics) *Loop {
	l.metrics = m
	return l
}

// State returns a copy of the loop state.
func (l *Loop) State() State {
	return l.state
}

// Run repeats cycles until ctx is cancelled (returns nil), the stop button is
// pressed (ErrStopped) or the display asks for a hard stop. Liveness
// timeouts are reported and retried.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("acquisition started",
		zap.Int("nodata_every", l.opts.NoDataEvery),
		zap.Int("liveness_timeout", l.opts.LivenessTimeout),
		zap.Duration("backoff", l.opts.Backoff),
		zap.Stringer("function", l.state.Function),
	)
	for {
		err := l.Step(ctx)
		switch {
		case err == nil, errors.Is(err, ErrLivenessTimeout):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			l.log.Info("acquisition shutting down")
			return nil
		default:
			l.log.Info("acquisition ended", zap.Error(err))
			return err
		}
	}
}

// Step runs one cycle and acts on its outcome.
func (l *Loop) Step(ctx context.Context) error {
	fix, err := l.Cycle(ctx)

	l.state.LoopCount++
	if l.state.LoopCount >= l.opts.MaxLoopCount {
		l.log.Debug("loop counter wrapped", zap.Int("count", l.state.LoopCount), zap.Int("fixes", l.state.Fixes))
		l.state.LoopCount = 0
	}

	switch {
	case errors.Is(err, ErrLivenessTimeout):
		l.metrics.Cycle("timeout")
		l.log.Warn("GPS receiver silent, treating serial channel as unavailable",
			zap.Int("empty_reads", l.opts.LivenessTimeout))
		l.setNoData()
		l.publish(ctx, Event{Kind: EventTimeout, EmptyReads: l.opts.LivenessTimeout})
		l.show(ctx, display.Text{Text: "no data"})
		return err
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		l.metrics.Cycle("cancelled")
		return err
	case err != nil:
		l.metrics.Cycle("error")
		return err
	}

	l.metrics.Cycle("fix")
	return l.handleFix(ctx, fix)
}

// Cycle reads lines until one fix is assembled. Only ErrLivenessTimeout,
// ErrStopped and context errors are returned; every per-line problem is
// handled here. The assembler is cleared on every exit.
func (l *Loop) Cycle(ctx context.Context) (gps.Fix, error) {
	defer l.asm.Reset()

	empty := 0
	for {
		if err := l.checkpoint(ctx); err != nil {
			return gps.Fix{}, err
		}

		line, ok := l.src.ReadLine()
		if !ok {
			empty++
			l.metrics.EmptyRead()
			if empty >= l.opts.LivenessTimeout {
				return gps.Fix{}, ErrLivenessTimeout
			}
			if empty%l.opts.NoDataEvery == 0 {
				l.noDataSignal(ctx, empty)
			}
			if err := l.pause(ctx); err != nil {
				return gps.Fix{}, err
			}
			continue
		}
		empty = 0

		if !utf8.Valid(line) {
			l.metrics.Sentence("undecodable")
			l.log.Debug("undecodable serial data, check serial wiring", zap.Int("bytes", len(line)))
			if err := l.pause(ctx); err != nil {
				return gps.Fix{}, err
			}
			continue
		}

		res := l.asm.Feed(string(line))
		l.metrics.Sentence(res.Status.String())
		switch res.Status {
		case gps.BothComplete:
			return res.Fix, nil
		case gps.Malformed:
			l.log.Debug("discarding sentence", zap.Error(res.Err))
		}
	}
}

// checkpoint is the only place where cancellation and buttons are observed.
func (l *Loop) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.inputs == nil {
		return nil
	}
	for _, ev := range l.inputs.Drain() {
		switch ev {
		case input.NextFunction:
			l.state.Function = l.state.Function.Next()
		case input.PrevFunction:
			l.state.Function = l.state.Function.Prev()
		case input.Stop:
			return ErrStopped
		}
		l.log.Info("display function changed", zap.Stringer("function", l.state.Function))
	}
	return nil
}

func (l *Loop) pause(ctx context.Context) error {
	if l.opts.Reclaim {
		runtime.GC()
	}
	return l.sleep(ctx, l.opts.Backoff)
}

func (l *Loop) noDataSignal(ctx context.Context, empty int) {
	l.log.Warn("no data", zap.Int("empty_reads", empty))
	l.setNoData()
	l.publish(ctx, Event{Kind: EventNoData, EmptyReads: empty})
	l.show(ctx, display.Text{Text: "no data"})
}

func (l *Loop) setNoData() {
	l.state.Motion = gps.NoData
	l.metrics.NoData()
}

func (l *Loop) handleFix(ctx context.Context, fix gps.Fix) error {
	l.state.Fix = fix
	l.state.Fixes++
	l.state.Motion = gps.ClassifyFix(fix)

	gs, gsErr := fix.GroundSpeed()
	alt, altErr := fix.Altitude()
	l.metrics.Fix(int(l.state.Motion), gs, alt, gsErr == nil, altErr == nil)
	l.log.Info("fix",
		zap.String("lat", fix.Latitude+string(fix.LatitudeDir)),
		zap.String("lon", fix.Longitude+string(fix.LongitudeDir)),
		zap.String("gs", fix.GroundSpeedKnots),
		zap.String("alt_ft", fix.AltitudeFeet),
		zap.Stringer("motion", l.state.Motion),
	)
	l.publish(ctx, Event{Kind: EventFix})

	var err error
	switch l.state.Motion {
	case gps.NoData:
		err = l.sink.ShowText(ctx, display.Text{Text: "no data"})
	case gps.Stopped:
		err = l.sink.ShowText(ctx, display.Text{Text: "ac parked"})
	case gps.Taxiing:
		err = l.sink.ShowText(ctx, display.Text{Text: "taxiing"})
	case gps.Flying:
		err = l.present(ctx, fix)
	}
	if errors.Is(err, display.ErrHardStop) {
		return err
	}
	if err != nil {
		l.log.Warn("display failed", zap.Error(err))
	}
	return nil
}

// show sends an informational text; failures are only logged.
func (l *Loop) show(ctx context.Context, t display.Text) {
	if err := l.sink.ShowText(ctx, t); err != nil {
		l.log.Warn("display failed", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
