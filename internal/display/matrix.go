// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Panel size of the LED matrix.
const (
	MatrixWidth  = 53
	MatrixHeight = 11
)

// Ribbon layout: labels for heading-2, heading and heading+2 at fixed
// columns, the middle one lowered, and a tick row above the base line.
var (
	ribbonTicks   = [7]int{2, 10, 18, 26, 34, 42, 50}
	ribbonLabelAt = [3]image.Point{{X: 1, Y: 0}, {X: 19, Y: 2}, {X: 36, Y: 0}}
)

// digitGlyphs are 3x5 digits for the ribbon labels.
var digitGlyphs = [10][5]string{
	{"###", "#.#", "#.#", "#.#", "###"},
	{".#.", "##.", ".#.", ".#.", "###"},
	{"###", "..#", "###", "#..", "###"},
	{"###", "..#", "###", "..#", "###"},
	{"#.#", "#.#", "###", "..#", "..#"},
	{"###", "#..", "###", "..#", "###"},
	{"###", "#..", "###", "#.#", "###"},
	{"###", "..#", "..#", "..#", "..#"},
	{"###", "#.#", "###", "#.#", "###"},
	{"###", "#.#", "###", "..#", "###"},
}

// digitFace renders digitGlyphs with a one pixel gap, so a three digit label
// is 11 pixels wide.
var digitFace = newDigitFace()

func newDigitFace() *basicfont.Face {
	mask := image.NewAlpha(image.Rect(0, 0, 3, 5*len(digitGlyphs)))
	for d, rows := range digitGlyphs {
		for y, row := range rows {
			for x, c := range row {
				if c == '#' {
					mask.SetAlpha(x, d*5+y, color.Alpha{A: 0xff})
				}
			}
		}
	}
	return &basicfont.Face{
		Advance: 4,
		Width:   3,
		Height:  6,
		Ascent:  5,
		Mask:    mask,
		Ranges:  []basicfont.Range{{Low: '0', High: '9' + 1}},
	}
}

// textBaseline keeps the tallest glyphs of the text font inside the panel.
var textBaseline = basicfont.Face7x13.Metrics().Ascent.Ceil()

// Matrix renders requests into an in-memory grayscale frame of the panel.
// Scrolling texts wider than the panel move one pixel per Advance call.
type Matrix struct {
	mu      sync.Mutex
	frame   *image.Gray
	text    Text
	heading *Heading
	offset  int
}

// NewMatrix returns a blank panel.
func NewMatrix() *Matrix {
	return &Matrix{frame: image.NewGray(image.Rect(0, 0, MatrixWidth, MatrixHeight))}
}

func (m *Matrix) ShowText(_ context.Context, t Text) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = t
	m.heading = nil
	m.offset = 0
	m.render()
	return nil
}

func (m *Matrix) ShowHeading(_ context.Context, h Heading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heading = &h
	m.render()
	return nil
}

// Advance moves a scrolling text one pixel to the left.
func (m *Matrix) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heading != nil || !m.text.Scroll {
		return
	}
	w := textWidth(m.text.Text)
	if w <= MatrixWidth {
		return
	}
	m.offset = (m.offset + 1) % w
	m.render()
}

// Frame returns a copy of the current frame.
func (m *Matrix) Frame() *image.Gray {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := image.NewGray(m.frame.Rect)
	copy(out.Pix, m.frame.Pix)
	return out
}

// Lit counts the pixels that are switched on.
func (m *Matrix) Lit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.frame.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

func (m *Matrix) render() {
	clear(m.frame.Pix)
	if m.heading != nil {
		m.renderRibbon(m.heading.ValueDeg)
		return
	}
	m.drawString(basicfont.Face7x13, m.text.Text, -m.offset, textBaseline, color.Gray{Y: 0xff})
}

// renderRibbon draws the three heading labels over a fixed tick row and a
// full-width base line.
func (m *Matrix) renderRibbon(hdg float64) {
	base := MatrixHeight - 1
	for x := 0; x < MatrixWidth; x++ {
		m.frame.SetGray(x, base, color.Gray{Y: 0x60})
	}
	for _, x := range ribbonTicks {
		m.frame.SetGray(x, base-1, color.Gray{Y: 0xff})
	}

	for i, label := range RibbonLabels(hdg) {
		c := color.Gray{Y: 0xa0}
		if i == 1 {
			c = color.Gray{Y: 0xff}
		}
		at := ribbonLabelAt[i]
		m.drawString(digitFace, label, at.X, at.Y+digitFace.Ascent, c)
	}
}

func (m *Matrix) drawString(face font.Face, s string, x, baseline int, c color.Gray) {
	d := &font.Drawer{
		Dst:  m.frame,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// RibbonLabel formats a heading the way the ribbon shows it, e.g. "005".
func RibbonLabel(hdg float64) string {
	v := int(math.Round(wrapDegrees(hdg)))
	if v == 360 {
		v = 0
	}
	return fmt.Sprintf("%03d", v)
}

// RibbonLabels returns the labels left of, at and right of the heading.
func RibbonLabels(hdg float64) [3]string {
	return [3]string{RibbonLabel(hdg - 2), RibbonLabel(hdg), RibbonLabel(hdg + 2)}
}

func wrapDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
