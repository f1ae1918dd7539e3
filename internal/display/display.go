// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display holds the requests sent to the pixel display and the sinks
// that consume them.
package display

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrHardStop is returned by a Sink that wants the acquisition loop to end.
var ErrHardStop = errors.New("display: hard stop")

// Text asks the display to show a line of text.
type Text struct {
	Text   string `json:"text"`
	Scroll bool   `json:"scroll"`
}

// Heading positions the heading ribbon.
type Heading struct {
	ValueDeg float64 `json:"value_deg"`
}

//go:generate mockgen -source=$GOFILE -destination=mock_display/mock_display.go -package=mock_display

// Sink consumes display requests.
type Sink interface {
	ShowText(ctx context.Context, t Text) error
	ShowHeading(ctx context.Context, h Heading) error
}

// Function selects which quantity is displayed while flying.
type Function int

const (
	Position Function = iota
	GroundSpeed
	Track
	Altitude

	numFunctions = 4
)

var functionNames = [numFunctions]string{"position", "groundspeed", "track", "altitude"}

func (f Function) String() string {
	if f < 0 || f >= numFunctions {
		return fmt.Sprintf("function(%d)", int(f))
	}
	return functionNames[f]
}

// Next and Prev cycle through the functions with wrap-around.
func (f Function) Next() Function {
	return (f + 1) % numFunctions
}

func (f Function) Prev() Function {
	return (f + numFunctions - 1) % numFunctions
}

// ParseFunction accepts the names returned by Function.String.
func ParseFunction(s string) (Function, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range functionNames {
		if name == s {
			return Function(i), nil
		}
	}
	return 0, fmt.Errorf("unknown display function %q", s)
}

// Multi fans each request out to all sinks. Every sink is called; the
// returned error joins all failures.
type Multi []Sink

func (m Multi) ShowText(ctx context.Context, t Text) error {
	var errs []error
	for _, s := range m {
		if err := s.ShowText(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) ShowHeading(ctx context.Context, h Heading) error {
	var errs []error
	for _, s := range m {
		if err := s.ShowHeading(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes display requests to the log. Used when no panel is attached.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) ShowText(_ context.Context, t Text) error {
	s.Log.Info("display text", zap.String("text", t.Text), zap.Bool("scroll", t.Scroll))
	return nil
}

func (s LogSink) ShowHeading(_ context.Context, h Heading) error {
	labels := RibbonLabels(h.ValueDeg)
	s.Log.Info("display heading", zap.Float64("heading", h.ValueDeg), zap.Strings("ribbon", labels[:]))
	return nil
}
