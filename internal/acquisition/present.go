// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/display"
	"github.com/relabs-tech/gps_matrix/internal/gps"
)

// present renders fix with the currently selected display function.
func (l *Loop) present(ctx context.Context, fix gps.Fix) error {
	switch l.state.Function {
	case display.Position:
		return l.presentPosition(ctx, fix)
	case display.GroundSpeed:
		return l.presentGroundSpeed(ctx, fix)
	case display.Track:
		return l.presentTrack(ctx, fix)
	case display.Altitude:
		return l.presentAltitude(ctx, fix)
	default:
		return fmt.Errorf("unknown display function %v", l.state.Function)
	}
}

func (l *Loop) presentPosition(ctx context.Context, fix gps.Fix) error {
	lat, err := fix.LatitudeRaw()
	if err != nil {
		return err
	}
	lon, err := fix.LongitudeRaw()
	if err != nil {
		return err
	}
	if err := l.sink.ShowText(ctx, display.Text{Text: fmt.Sprintf("%5.2f %s", lat, fix.LatitudeDir)}); err != nil {
		return err
	}
	return l.sink.ShowText(ctx, display.Text{Text: fmt.Sprintf("%5.2f %s", lon, fix.LongitudeDir)})
}

func (l *Loop) presentGroundSpeed(ctx context.Context, fix gps.Fix) error {
	gs, err := fix.GroundSpeed()
	if err != nil {
		return err
	}
	return l.sink.ShowText(ctx, display.Text{Text: fmt.Sprintf("GS %d KT", int(math.Round(gs)))})
}

func (l *Loop) presentAltitude(ctx context.Context, fix gps.Fix) error {
	return l.sink.ShowText(ctx, display.Text{Text: fmt.Sprintf("A %s FT", fix.AltitudeFeet)})
}

// presentTrack announces the magnetic/true choice the first time and on every
// change, then moves the heading ribbon.
func (l *Loop) presentTrack(ctx context.Context, fix gps.Fix) error {
	trueTrk, err := fix.TrackTrue()
	if err != nil {
		return err
	}
	lat, err := fix.LatitudeDeg()
	if err != nil {
		return err
	}
	magnetic, changed := l.track.MagneticOrTrue(lat, fix.LatitudeDir)

	// Missing variation: magnetic equals true.
	variation, _ := fix.Variation()
	magTrk := gps.MagneticTrack(trueTrk, variation, fix.VariationDir)

	hdg, ref := round1(trueTrk), "T"
	if magnetic {
		hdg, ref = round1(magTrk), "M"
	}
	l.log.Debug("track", zap.Float64("true", trueTrk), zap.String("variation", fix.VariationDeg+string(fix.VariationDir)),
		zap.Float64("magnetic", magTrk), zap.String("shown", fmt.Sprintf("TRACK %.1f degs (%s)", hdg, ref)))

	if !l.state.trackAnnounced || changed {
		label := "TRK TRUE"
		if magnetic {
			label = "TRK MAG"
		}
		if err := l.sink.ShowText(ctx, display.Text{Text: label}); err != nil {
			return err
		}
		l.state.trackAnnounced = true
	}
	return l.sink.ShowHeading(ctx, display.Heading{ValueDeg: hdg})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
