// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrMalformed marks a sentence that was located in the input but cannot be
// used (bad checksum, undecodable text).
var ErrMalformed = errors.New("gps: malformed sentence")

const (
	rmcMarker = nmea.SentenceStart + "GP" + nmea.TypeRMC
	ggaMarker = nmea.SentenceStart + "GP" + nmea.TypeGGA

	// Comma-split field counts of complete sentences, checksum included in
	// the last field.
	rmcFieldCount = 12
	ggaFieldCount = 15

	ggaAltitudeField = 9
)

// RMC field indexes:
//
//	0: $GPRMC
//	1: time (hhmmss.ss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: track made good, true (deg)
//	9: date (ddmmyy)
//	10: magnetic variation (deg)
//	11: E/W, followed by "*hh"
const (
	rmcID = iota
	rmcTime
	rmcStatus
	rmcLat
	rmcLatDir
	rmcLon
	rmcLonDir
	rmcSpeed
	rmcTrack
	rmcDate
	rmcVariation
	rmcVariationDir
)

// sentenceBody returns the text from the marker found at start up to the
// next occurrence of stop, or to the end of text.
func sentenceBody(text string, start int, stop string) string {
	body := text[start:]
	if n := strings.Index(body[1:], stop); n >= 0 {
		body = body[:n+1]
	}
	return body
}

func splitFields(body string) []string {
	return strings.Split(body, nmea.FieldSep)
}

// verifyChecksum checks the XOR checksum of a "$...*hh" sentence.
func verifyChecksum(body string) error {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, nmea.SentenceStart) {
		return fmt.Errorf("%w: missing %q", ErrMalformed, nmea.SentenceStart)
	}
	star := strings.LastIndex(body, nmea.ChecksumSep)
	if star < 0 {
		return fmt.Errorf("%w: missing checksum", ErrMalformed)
	}
	sum := strings.TrimSpace(body[star+1:])
	if len(sum) < 2 {
		return fmt.Errorf("%w: short checksum %q", ErrMalformed, sum)
	}
	want := strings.ToUpper(sum[:2])
	got := nmea.Checksum(body[1:star])
	if got != want {
		return fmt.Errorf("%w: checksum mismatch (%s != %s)", ErrMalformed, got, want)
	}
	return nil
}
