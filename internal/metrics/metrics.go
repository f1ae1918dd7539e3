// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes Prometheus collectors for the acquisition loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gps_matrix"

// Metrics groups the acquisition collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Cycles     *prometheus.CounterVec
	EmptyReads prometheus.Counter
	Sentences  *prometheus.CounterVec
	Motion     prometheus.Gauge
	GroundKt   prometheus.Gauge
	AltitudeFt prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_cycles_total",
			Help:      "Acquisition cycles by outcome (fix, timeout, cancelled, error).",
		}, []string{"outcome"}),
		EmptyReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_reads_total",
			Help:      "Serial read attempts that returned no complete line.",
		}),
		Sentences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assembler_results_total",
			Help:      "Assembler results per fed line (incomplete, complete, malformed, undecodable).",
		}, []string{"status"}),
		Motion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "motion_state",
			Help:      "Last motion state: 0 no data, 1 parked, 2 taxiing, 3 flying.",
		}),
		GroundKt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ground_speed_knots",
			Help:      "Ground speed of the last fix.",
		}),
		AltitudeFt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "altitude_feet",
			Help:      "Altitude of the last fix.",
		}),
	}
	reg.MustRegister(m.Cycles, m.EmptyReads, m.Sentences, m.Motion, m.GroundKt, m.AltitudeFt)
	return m
}

func (m *Metrics) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EmptyRead() {
	if m == nil {
		return
	}
	m.EmptyReads.Inc()
}

func (m *Metrics) Sentence(status string) {
	if m == nil {
		return
	}
	m.Sentences.WithLabelValues(status).Inc()
}

// Fix records the classification and values of a new fix. Values that are
// not available are left unchanged.
func (m *Metrics) Fix(motion int, groundKt, altFt float64, haveGS, haveAlt bool) {
	if m == nil {
		return
	}
	m.Motion.Set(float64(motion))
	if haveGS {
		m.GroundKt.Set(groundKt)
	}
	if haveAlt {
		m.AltitudeFt.Set(altFt)
	}
}

// NoData marks the motion state as unknown.
func (m *Metrics) NoData() {
	if m == nil {
		return
	}
	m.Motion.Set(0)
}
