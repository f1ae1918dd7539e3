// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWait bounds each WaitForEdge call so cancellation is noticed.
const edgeWait = 250 * time.Millisecond

// Buttons maps GPIO pin names (e.g. "GPIO12") to the event they raise. Empty
// names are skipped.
type Buttons struct {
	Next string
	Prev string
	Stop string
}

func (b Buttons) Empty() bool {
	return b.Next == "" && b.Prev == "" && b.Stop == ""
}

// WatchButtons configures the pins as pulled-up inputs and pushes an event
// to q on every falling edge until ctx is done. Every pin is set up before
// any is watched, so on error no button is live.
func WatchButtons(ctx context.Context, b Buttons, q *Queue, log *zap.Logger) error {
	if b.Empty() {
		return nil
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	return watchButtons(ctx, b, q, log)
}

func watchButtons(ctx context.Context, b Buttons, q *Queue, log *zap.Logger) error {
	type button struct {
		pin gpio.PinIn
		ev  Event
	}
	var ready []button
	for _, cand := range []struct {
		name string
		ev   Event
	}{{b.Next, NextFunction}, {b.Prev, PrevFunction}, {b.Stop, Stop}} {
		if cand.name == "" {
			continue
		}
		pin, err := setupPin(cand.name)
		if err != nil {
			return err
		}
		ready = append(ready, button{pin: pin, ev: cand.ev})
	}

	for _, btn := range ready {
		log.Info("button ready", zap.String("pin", btn.pin.Name()), zap.Stringer("event", btn.ev))
		go watchPin(ctx, btn.pin, btn.ev, q, log)
	}
	return nil
}

// Validate rejects a pin used for more than one button.
func (b Buttons) Validate() error {
	seen := map[string]string{}
	for _, p := range [][2]string{{"next", b.Next}, {"prev", b.Prev}, {"stop", b.Stop}} {
		if p[1] == "" {
			continue
		}
		if other, ok := seen[p[1]]; ok {
			return fmt.Errorf("button pin %s used for both %s and %s", p[1], other, p[0])
		}
		seen[p[1]] = p[0]
	}
	return nil
}

func setupPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("button pin %s: %w", name, err)
	}
	return pin, nil
}

func watchPin(ctx context.Context, pin gpio.PinIn, ev Event, q *Queue, log *zap.Logger) {
	for ctx.Err() == nil {
		if !pin.WaitForEdge(edgeWait) {
			continue
		}
		if q.Push(ev) {
			log.Debug("button pressed", zap.Stringer("event", ev))
		}
	}
}
