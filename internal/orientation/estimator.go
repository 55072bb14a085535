// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns IMU samples into a unit-quaternion attitude:
// gyro bias calibration followed by a complementary filter that slerps the
// gyro-integrated rotation toward the accelerometer tilt.
package orientation

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// DefaultBlendWeight trusts the accelerometer fully.
const DefaultBlendWeight = 1.0

const degToRad = math.Pi / 180

// Variant fixes how much an estimator trusts each sensor.
type Variant int

const (
	Both      Variant = iota // configured blend weight
	GyroOnly                 // weight 0
	AccelOnly                // weight 1
)

func (v Variant) String() string {
	switch v {
	case Both:
		return "both"
	case GyroOnly:
		return "gyro"
	case AccelOnly:
		return "accel"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant accepts both, gyro or accel.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "both":
		return Both, nil
	case "gyro":
		return GyroOnly, nil
	case "accel", "acc":
		return AccelOnly, nil
	}
	return 0, fmt.Errorf("unknown estimator variant %q: expected both, gyro or accel", s)
}

// Options configure a new Estimator.
type Options struct {
	Variant            Variant
	BlendWeight        float64
	CalibrationSamples int
	Remap              Remap
}

// Estimator tracks one body. It is not safe for concurrent use; the consumer
// tick owns it.
type Estimator struct {
	variant     Variant
	weight      float64
	calibration *Calibration
	remap       Remap

	orientation quat.Number
	seeded      bool
}

func NewEstimator(opts Options) *Estimator {
	e := &Estimator{
		variant:     opts.Variant,
		calibration: NewCalibration(opts.CalibrationSamples),
		remap:       opts.Remap,
		orientation: Identity,
	}
	e.SetBlendWeight(opts.BlendWeight)
	return e
}

// Update feeds one sample. dt is the wall time in seconds since this
// estimator last advanced. It returns the body-axis orientation and true
// when a new orientation was produced.
//
// A DroneState carries an orientation fused on the device; it is taken as is
// and calibration is bypassed.
func (e *Estimator) Update(s imu.Sample, dt float64) (quat.Number, bool) {
	switch s := s.(type) {
	case imu.RawSample:
		return e.fuse(s, dt)
	case imu.DroneState:
		e.orientation = Normalize(fromWire(s.Orientation))
		e.seeded = true
		return e.orientation, true
	}
	return quat.Number{}, false
}

func (e *Estimator) fuse(s imu.RawSample, dt float64) (quat.Number, bool) {
	if !e.calibration.Active() {
		e.calibration.Add(s.Gyro)
		return quat.Number{}, false
	}

	roll, pitch := AccelTilt(s.Accel)
	byAccel := FromEuler(roll, pitch, 0)

	if !e.seeded {
		e.orientation = Normalize(byAccel)
		e.seeded = true
		return e.orientation, true
	}

	byGyro := e.integrate(s.Gyro, dt)
	e.orientation = Normalize(Slerp(byGyro, byAccel, e.EffectiveWeight()))
	return e.orientation, true
}

// integrate applies the bias-corrected roll and pitch rates over dt to the
// previous orientation. Yaw rate is left out: the accelerometer cannot
// correct it.
func (e *Estimator) integrate(gyro imu.Vector3, dt float64) quat.Number {
	rate := gyro.Sub(e.calibration.Offset()).Scale(degToRad)
	delta := FromScaledAxis(imu.Vector3{X: rate.X * dt, Y: rate.Y * dt})
	return Normalize(quat.Mul(delta, e.orientation))
}

// Orientation is the last fused orientation in body axes.
func (e *Estimator) Orientation() (quat.Number, bool) {
	return e.orientation, e.seeded
}

// Display is Orientation re-expressed in the consumer's axes.
func (e *Estimator) Display() (quat.Number, bool) {
	if !e.seeded {
		return quat.Number{}, false
	}
	return e.remap.Apply(e.orientation), true
}

// Recalibrate drops the bias and the previous orientation and starts
// collecting calibration samples again.
func (e *Estimator) Recalibrate() {
	e.calibration.Reset()
	e.orientation = Identity
	e.seeded = false
}

// SetBlendWeight stores w clamped to [0,1]. GyroOnly and AccelOnly ignore it.
func (e *Estimator) SetBlendWeight(w float64) {
	if math.IsNaN(w) {
		w = DefaultBlendWeight
	}
	e.weight = math.Max(0, math.Min(1, w))
}

// BlendWeight is the configured weight.
func (e *Estimator) BlendWeight() float64 { return e.weight }

// EffectiveWeight applies the variant override.
func (e *Estimator) EffectiveWeight() float64 {
	switch e.variant {
	case GyroOnly:
		return 0
	case AccelOnly:
		return 1
	}
	return e.weight
}

func (e *Estimator) Variant() Variant { return e.variant }

// Calibrating reports whether the estimator is still waiting for its gyro
// bias. An estimator fed device-fused orientations never waits.
func (e *Estimator) Calibrating() bool { return !e.seeded && !e.calibration.Active() }

// Calibration exposes the bias state for diagnostics.
func (e *Estimator) Calibration() *Calibration { return e.calibration }
