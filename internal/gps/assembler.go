// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// metersToFeet is the conversion factor applied to the GGA altitude.
const metersToFeet = 3.2808

// Status is the outcome of feeding text into an Assembler.
type Status int

const (
	Incomplete Status = iota
	BothComplete
	Malformed
)

func (s Status) String() string {
	switch s {
	case Incomplete:
		return "incomplete"
	case BothComplete:
		return "complete"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Assembly is returned by Assembler.Feed. Fix is only set when Status is
// BothComplete, Err only when Status is Malformed.
type Assembly struct {
	Status Status
	Fix    Fix
	Err    error
}

// Assembler pairs one GPRMC and one GPGGA sentence into a Fix. The two may
// arrive in any order, in the same text or spread over several Feed calls.
// An Assembler is not safe for concurrent use.
type Assembler struct {
	// VerifyChecksum rejects sentences whose "*hh" suffix does not match
	// the XOR of their body.
	VerifyChecksum bool

	rmc []string
	gga []string
}

// NewAssembler returns an empty Assembler.
func NewAssembler(verifyChecksum bool) *Assembler {
	return &Assembler{VerifyChecksum: verifyChecksum}
}

// Pending reports which sentence types are already held for the current fix.
func (a *Assembler) Pending() (rmc, gga bool) {
	return a.rmc != nil, a.gga != nil
}

// Reset drops any partially assembled fix.
func (a *Assembler) Reset() {
	a.rmc = nil
	a.gga = nil
}

// Feed scans text for $GPRMC and $GPGGA sentences. A wrong field count leaves
// the sentence pending; a checksum failure reports Malformed. Neither
// discards the other sentence type if it is already complete.
func (a *Assembler) Feed(text string) Assembly {
	var bad error

	if a.rmc == nil {
		if n := strings.Index(text, rmcMarker); n >= 0 {
			body := sentenceBody(text, n, ggaMarker)
			if err := a.check(body); err != nil {
				bad = err
			} else if f := splitFields(body); len(f) == rmcFieldCount {
				f[rmcVariationDir] = hemisphereField(f[rmcVariationDir])
				a.rmc = f
			}
		}
	}

	if a.gga == nil {
		if n := strings.Index(text, ggaMarker); n >= 0 {
			body := sentenceBody(text, n, rmcMarker)
			if !strings.Contains(body, "\r\n") {
				body += "\r\n"
			}
			if err := a.check(body); err != nil {
				bad = err
			} else if f := splitFields(body); len(f) == ggaFieldCount {
				a.gga = f
			}
		}
	}

	if a.rmc != nil && a.gga != nil {
		fix := merge(a.rmc, a.gga)
		a.Reset()
		return Assembly{Status: BothComplete, Fix: fix}
	}
	if bad != nil {
		return Assembly{Status: Malformed, Err: bad}
	}
	return Assembly{Status: Incomplete}
}

func (a *Assembler) check(body string) error {
	if !a.VerifyChecksum {
		return nil
	}
	return verifyChecksum(body)
}

func merge(rmc, gga []string) Fix {
	return Fix{
		ID:               strings.TrimPrefix(rmc[rmcID], "$"),
		Latitude:         rmc[rmcLat],
		LatitudeDir:      Hemisphere(rmc[rmcLatDir]),
		Longitude:        rmc[rmcLon],
		LongitudeDir:     Hemisphere(rmc[rmcLonDir]),
		GroundSpeedKnots: rmc[rmcSpeed],
		TrackTrueDeg:     rmc[rmcTrack],
		Date:             rmc[rmcDate],
		VariationDeg:     rmc[rmcVariation],
		VariationDir:     Hemisphere(rmc[rmcVariationDir]),
		AltitudeFeet:     altitudeFeet(gga[ggaAltitudeField]),
	}
}

// hemisphereField reduces the last RMC field ("E*6A\r\n") to its direction
// letter. An empty variation ("*6A") yields "".
func hemisphereField(v string) string {
	if n := strings.Index(v, nmea.ChecksumSep); n >= 0 {
		v = v[:n]
	}
	v = strings.TrimSpace(v)
	if len(v) > 1 {
		v = v[:1]
	}
	return v
}

// altitudeFeet converts the GGA altitude in meters to rounded feet, or "0"
// when the field is not a number.
func altitudeFeet(meters string) string {
	m, err := strconv.ParseFloat(strings.TrimSpace(meters), 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
		return "0"
	}
	return strconv.Itoa(int(math.Round(m * metersToFeet)))
}
