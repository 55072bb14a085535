// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/attitude_link/internal/config"
	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/link"
	"github.com/relabs-tech/attitude_link/internal/metrics"
	"github.com/relabs-tech/attitude_link/internal/orientation"
)

// BodyOutput is the published state of one body, in display axes.
type BodyOutput struct {
	Body        string           `json:"body"`
	Variant     string           `json:"variant"`
	Calibrating bool             `json:"calibrating"`
	Orientation imu.Quaternion   `json:"orientation"`
	Pose        orientation.Pose `json:"pose"`
	BlendWeight float64          `json:"blend_weight"`
	Time        time.Time        `json:"time"`
}

// RawOutput is the unfused IMU data of one consumed sample: both blocks of a
// stream frame, or the raw blocks of a DroneState.
type RawOutput struct {
	IMU          [2]imu.Reading `json:"imu"`
	Timestamp    float64        `json:"timestamp,omitempty"` // device seconds
	HasTimestamp bool           `json:"has_timestamp"`
	Time         time.Time      `json:"time"`
}

// Sink receives every batch of new orientations. Publish must not block.
type Sink interface {
	Publish(outs []BodyOutput)
}

// RawSink is implemented by sinks that also want the raw IMU data of every
// consumed sample, including those taken during calibration. PublishRaw must
// not block.
type RawSink interface {
	PublishRaw(raw RawOutput)
}

func rawOutput(s imu.Sample, now time.Time) (RawOutput, bool) {
	switch s := s.(type) {
	case imu.RawSample:
		return RawOutput{IMU: s.IMU, Timestamp: s.Timestamp, HasTimestamp: s.HasTimestamp, Time: now}, true
	case imu.DroneState:
		return RawOutput{IMU: s.Raw, Time: now}, true
	}
	return RawOutput{}, false
}

type body struct {
	name        string
	est         *orientation.Estimator
	lastAdvance time.Time
	latest      BodyOutput
	seen        bool
	fresh       bool
}

// Tracker is the consumer side: once per tick it takes the freshest sample
// and advances every body. It also carries the UI-facing operations
// (blend weight, commands, latest orientation), which may be called from
// other goroutines.
type Tracker struct {
	samples  *link.Slot[imu.Sample]
	commands *link.Slot[link.Command]

	mu     sync.Mutex
	bodies []*body
	byName map[string]*body
	sinks  []Sink
}

// NewTracker builds one estimator per configured body.
func NewTracker(cfg *config.Config, samples *link.Slot[imu.Sample], commands *link.Slot[link.Command]) *Tracker {
	t := &Tracker{
		samples:  samples,
		commands: commands,
		byName:   make(map[string]*body),
	}
	for _, b := range cfg.Bodies {
		est := orientation.NewEstimator(orientation.Options{
			Variant:            b.Variant,
			BlendWeight:        cfg.BlendWeight,
			CalibrationSamples: cfg.CalibrationSamples,
			Remap:              cfg.Remap,
		})
		nb := &body{name: b.Name, est: est}
		t.bodies = append(t.bodies, nb)
		t.byName[b.Name] = nb
		metrics.Calibrating.WithLabelValues(b.Name).Set(1)
		metrics.BlendWeight.WithLabelValues(b.Name).Set(est.EffectiveWeight())
	}
	return t
}

// AddSink registers a consumer of new orientations.
func (t *Tracker) AddSink(s Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, s)
}

// Run ticks every interval until ctx ends.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

// Tick applies the pending sample, if any, to every body. dt per body is the
// time since that body last advanced, so samples dropped by the slot only
// lower the update rate.
func (t *Tracker) Tick(now time.Time) []BodyOutput {
	s, ok := t.samples.TryReceive()
	if !ok {
		return nil
	}

	t.mu.Lock()
	var outs []BodyOutput
	for _, b := range t.bodies {
		var dt float64
		if !b.lastAdvance.IsZero() {
			dt = now.Sub(b.lastAdvance).Seconds()
		}
		b.lastAdvance = now

		wasCalibrating := b.est.Calibrating()
		_, produced := b.est.Update(s, dt)
		metrics.EstimatorTicks.WithLabelValues(b.name).Inc()
		if wasCalibrating && !b.est.Calibrating() {
			if c := b.est.Calibration(); c.Active() {
				log.Printf("tracker: %s calibrated, gyro bias (%.3f, %.3f, %.3f) deg/s, spread (%.3f, %.3f, %.3f)",
					b.name, c.Offset().X, c.Offset().Y, c.Offset().Z, c.StdDev().X, c.StdDev().Y, c.StdDev().Z)
			} else {
				log.Printf("tracker: %s following the device-fused orientation", b.name)
			}
			metrics.Calibrating.WithLabelValues(b.name).Set(0)
		}
		if !produced {
			continue
		}

		b.latest = t.output(b, now)
		b.seen = true
		b.fresh = true
		outs = append(outs, b.latest)
	}
	sinks := t.sinks
	t.mu.Unlock()

	if raw, ok := rawOutput(s, now); ok {
		for _, sink := range sinks {
			if rs, ok := sink.(RawSink); ok {
				rs.PublishRaw(raw)
			}
		}
	}
	if len(outs) > 0 {
		for _, sink := range sinks {
			sink.Publish(outs)
		}
	}
	return outs
}

func (t *Tracker) output(b *body, now time.Time) BodyOutput {
	out := BodyOutput{
		Body:        b.name,
		Variant:     b.est.Variant().String(),
		Calibrating: b.est.Calibrating(),
		BlendWeight: b.est.EffectiveWeight(),
		Time:        now,
	}
	if q, ok := b.est.Display(); ok {
		out.Orientation = imu.Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
		out.Pose = orientation.ToPose(q)
	}
	return out
}

// Latest polls body for a new orientation. fresh is true only the first time
// a given orientation is returned.
func (t *Tracker) Latest(name string) (out BodyOutput, fresh bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.byName[name]
	if !ok {
		return BodyOutput{}, false, fmt.Errorf("unknown body %q", name)
	}
	if !b.seen {
		return BodyOutput{Body: name, Variant: b.est.Variant().String(), Calibrating: b.est.Calibrating()}, false, nil
	}
	fresh = b.fresh
	b.fresh = false
	return b.latest, fresh, nil
}

// Snapshot returns the last output of every body that has produced one.
func (t *Tracker) Snapshot() []BodyOutput {
	t.mu.Lock()
	defer t.mu.Unlock()
	outs := make([]BodyOutput, 0, len(t.bodies))
	for _, b := range t.bodies {
		if b.seen {
			outs = append(outs, b.latest)
		}
	}
	return outs
}

// Bodies lists body names in configuration order.
func (t *Tracker) Bodies() []string {
	names := make([]string, len(t.bodies))
	for i, b := range t.bodies {
		names[i] = b.name
	}
	return names
}

// BlendWeight returns the configured weight of body.
func (t *Tracker) BlendWeight(name string) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("unknown body %q", name)
	}
	return b.est.BlendWeight(), nil
}

// SetBlendWeight changes the weight of body; values outside [0,1] are clamped.
func (t *Tracker) SetBlendWeight(name string, w float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.byName[name]
	if !ok {
		return fmt.Errorf("unknown body %q", name)
	}
	b.est.SetBlendWeight(w)
	metrics.BlendWeight.WithLabelValues(name).Set(b.est.EffectiveWeight())
	return nil
}

// Enqueue hands cmd to the reader. A newer command replaces one not yet
// sent. Gyro recalibration also restarts the host-side bias estimate.
func (t *Tracker) Enqueue(cmd link.Command) {
	if t.commands.Send(cmd) {
		metrics.CommandsOverwritten.Inc()
	}
	if cmd != link.CalibrateGyro {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.bodies {
		b.est.Recalibrate()
		b.lastAdvance = time.Time{}
		metrics.Calibrating.WithLabelValues(b.name).Set(1)
	}
	log.Printf("tracker: gyro recalibration requested")
}
