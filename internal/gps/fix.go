// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFieldUnavailable is returned by the typed accessors when the field has
// not been received yet.
var ErrFieldUnavailable = errors.New("gps: field unavailable")

// Hemisphere is the single letter direction indicator carried by NMEA
// latitude, longitude and magnetic variation fields.
type Hemisphere string

const (
	North Hemisphere = "N"
	South Hemisphere = "S"
	East  Hemisphere = "E"
	West  Hemisphere = "W"
)

// Fix represents a single combined GPS fix merged from one GPRMC and one
// GPGGA sentence. Values are kept as the text received on the wire; an empty
// string means the value is not available.
type Fix struct {
	ID               string     `json:"id"`            // e.g. "GPRMC"
	Latitude         string     `json:"lat"`           // ddmm.mmmm
	LatitudeDir      Hemisphere `json:"lat_dir"`       // N / S
	Longitude        string     `json:"lon"`           // dddmm.mmmm
	LongitudeDir     Hemisphere `json:"lon_dir"`       // E / W
	GroundSpeedKnots string     `json:"speed_knots"`   // speed over ground
	TrackTrueDeg     string     `json:"track_true"`    // course over ground, true
	Date             string     `json:"date"`          // ddmmyy
	VariationDeg     string     `json:"variation"`     // magnetic variation
	VariationDir     Hemisphere `json:"variation_dir"` // E / W
	AltitudeFeet     string     `json:"alt_ft"`        // integer feet
}

// IsZero reports whether no fix has been assembled yet.
func (f Fix) IsZero() bool {
	return f == Fix{}
}

func parseField(name, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("%s: %w", name, ErrFieldUnavailable)
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, v, err)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%s %q: not a finite number", name, v)
	}
	return n, nil
}

// GroundSpeed returns the ground speed in knots.
func (f Fix) GroundSpeed() (float64, error) {
	return parseField("ground speed", f.GroundSpeedKnots)
}

// TrackTrue returns the true track in degrees.
func (f Fix) TrackTrue() (float64, error) {
	return parseField("track", f.TrackTrueDeg)
}

// Variation returns the magnetic variation in degrees (always positive,
// see VariationDir for the sign).
func (f Fix) Variation() (float64, error) {
	return parseField("variation", f.VariationDeg)
}

// Altitude returns the altitude in feet.
func (f Fix) Altitude() (float64, error) {
	return parseField("altitude", f.AltitudeFeet)
}

// LatitudeRaw and LongitudeRaw return the numeric ddmm.mmmm value as sent.
func (f Fix) LatitudeRaw() (float64, error) {
	return parseField("latitude", f.Latitude)
}

func (f Fix) LongitudeRaw() (float64, error) {
	return parseField("longitude", f.Longitude)
}

// LatitudeDeg returns the latitude converted from ddmm.mmmm to unsigned
// decimal degrees. The hemisphere is in LatitudeDir.
func (f Fix) LatitudeDeg() (float64, error) {
	v, err := f.LatitudeRaw()
	if err != nil {
		return 0, err
	}
	return degreesMinutes(v), nil
}

// LongitudeDeg is LatitudeDeg for the longitude field.
func (f Fix) LongitudeDeg() (float64, error) {
	v, err := f.LongitudeRaw()
	if err != nil {
		return 0, err
	}
	return degreesMinutes(v), nil
}

// degreesMinutes converts NMEA (d)ddmm.mmmm into decimal degrees.
func degreesMinutes(v float64) float64 {
	v = math.Abs(v)
	deg := math.Floor(v / 100)
	return deg + (v-deg*100)/60
}
