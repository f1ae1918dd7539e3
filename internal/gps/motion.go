// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "math"

// MotionState classifies the vehicle from its ground speed.
type MotionState int

const (
	NoData MotionState = iota
	Stopped
	Taxiing
	Flying
)

const (
	// Below this speed (knots) the vehicle is parked. Receivers report
	// ~0.1 kt of jitter while stationary.
	StoppedBelowKnots = 0.2
	// Above this speed (knots) the vehicle is airborne.
	FlyingAboveKnots = 30.0
)

func (s MotionState) String() string {
	switch s {
	case NoData:
		return "no data"
	case Stopped:
		return "parked"
	case Taxiing:
		return "taxiing"
	case Flying:
		return "flying"
	default:
		return "unknown"
	}
}

// Classify maps a ground speed to a MotionState. ok=false or a NaN speed
// yields NoData. There is no hysteresis at the thresholds.
func Classify(knots float64, ok bool) MotionState {
	switch {
	case !ok || math.IsNaN(knots):
		return NoData
	case knots < StoppedBelowKnots:
		return Stopped
	case knots <= FlyingAboveKnots:
		return Taxiing
	default:
		return Flying
	}
}

// ClassifyFix classifies the ground speed carried by f.
func ClassifyFix(f Fix) MotionState {
	gs, err := f.GroundSpeed()
	return Classify(gs, err == nil)
}
