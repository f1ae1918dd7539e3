// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "math"

// Above these latitudes charts publish true tracks: the horizontal component
// of the magnetic field is weak and changes quickly near the magnetic poles.
const (
	TrueNorthOfDeg = 60.0
	TrueSouthOfDeg = 40.0
)

// TrackResolver decides whether tracks are shown magnetic or true and
// remembers the last decision so callers can re-announce a change.
type TrackResolver struct {
	magnetic bool
}

// NewTrackResolver starts out reporting magnetic tracks.
func NewTrackResolver() *TrackResolver {
	return &TrackResolver{magnetic: true}
}

// Magnetic returns the current decision without re-evaluating it.
func (r *TrackResolver) Magnetic() bool {
	return r.magnetic
}

// MagneticOrTrue evaluates the policy for an unsigned latitude in degrees.
// magnetic is true when magnetic tracks should be shown; changed is true when
// that differs from the previous call.
func (r *TrackResolver) MagneticOrTrue(latDeg float64, dir Hemisphere) (magnetic, changed bool) {
	lat := math.Abs(latDeg)
	magnetic = true
	switch dir {
	case North:
		if lat >= TrueNorthOfDeg {
			magnetic = false
		}
	case South:
		if lat >= TrueSouthOfDeg {
			magnetic = false
		}
	}
	changed = magnetic != r.magnetic
	r.magnetic = magnetic
	return magnetic, changed
}

// MagneticTrack converts a true track to magnetic. East variation is
// subtracted, west variation added; the result is in [0, 360).
func MagneticTrack(trackTrue, variation float64, dir Hemisphere) float64 {
	trk := trackTrue
	switch dir {
	case East:
		trk -= variation
	case West:
		trk += variation
	}
	if trk >= 360.0 {
		trk -= 360.0
	}
	if trk < 0 {
		trk += 360.0
	}
	return trk
}
