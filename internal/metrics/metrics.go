// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics holds the Prometheus collectors for the telemetry link and
// the estimators. Collectors register with the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attitude_link_frames_decoded_total",
		Help: "Frames that passed validation.",
	})

	FramesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attitude_link_frames_discarded_total",
			Help: "Frames dropped by the decoder, by reason.",
		},
		[]string{"reason"},
	)

	ReadTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attitude_link_read_timeouts_total",
		Help: "Bounded reads that returned no data.",
	})

	// SamplesOverwritten counts samples replaced before the consumer took them.
	SamplesOverwritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attitude_link_samples_overwritten_total",
		Help: "Samples replaced in the telemetry slot before delivery.",
	})

	CommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attitude_link_commands_sent_total",
			Help: "Device commands written to the transport.",
		},
		[]string{"command"},
	)

	CommandsOverwritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attitude_link_commands_overwritten_total",
		Help: "Commands replaced by a newer one before the reader sent them.",
	})

	// Calibrating is 1 while a body is collecting gyro bias samples.
	Calibrating = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attitude_estimator_calibrating",
			Help: "1 while the body is calibrating, 0 once active.",
		},
		[]string{"body"},
	)

	BlendWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attitude_estimator_blend_weight",
			Help: "Effective accelerometer weight per body.",
		},
		[]string{"body"},
	)

	EstimatorTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attitude_estimator_ticks_total",
			Help: "Samples applied to each body.",
		},
		[]string{"body"},
	)
)

func init() {
	prometheus.MustRegister(
		FramesDecoded,
		FramesDiscarded,
		ReadTimeouts,
		SamplesOverwritten,
		CommandsSent,
		CommandsOverwritten,
		Calibrating,
		BlendWeight,
		EstimatorTicks,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
