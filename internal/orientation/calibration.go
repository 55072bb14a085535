// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// DefaultCalibrationSamples is the bias-estimation threshold. Calibration
// completes on the first sample beyond it.
const DefaultCalibrationSamples = 100

// Calibration is the gyro-bias state machine. It starts Calibrating, collects
// raw gyro readings in arrival order, and turns Active with the per-axis mean
// once more than threshold readings are held. Only Reset goes back.
type Calibration struct {
	threshold int
	samples   []imu.Vector3
	active    bool
	offset    imu.Vector3
	stdDev    imu.Vector3
}

// NewCalibration starts in Calibrating.
func NewCalibration(threshold int) *Calibration {
	if threshold <= 0 {
		threshold = DefaultCalibrationSamples
	}
	return &Calibration{
		threshold: threshold,
		samples:   make([]imu.Vector3, 0, threshold+1),
	}
}

// Add records one raw gyro reading while Calibrating and reports whether
// this reading completed calibration. It is a no-op once Active.
func (c *Calibration) Add(gyro imu.Vector3) bool {
	if c.active {
		return false
	}
	c.samples = append(c.samples, gyro)
	if len(c.samples) <= c.threshold {
		return false
	}

	xs := make([]float64, len(c.samples))
	ys := make([]float64, len(c.samples))
	zs := make([]float64, len(c.samples))
	for i, s := range c.samples {
		xs[i], ys[i], zs[i] = s.X, s.Y, s.Z
	}
	c.offset.X, c.stdDev.X = stat.MeanStdDev(xs, nil)
	c.offset.Y, c.stdDev.Y = stat.MeanStdDev(ys, nil)
	c.offset.Z, c.stdDev.Z = stat.MeanStdDev(zs, nil)

	c.samples = nil
	c.active = true
	return true
}

// Reset discards the offset and starts collecting again.
func (c *Calibration) Reset() {
	c.samples = make([]imu.Vector3, 0, c.threshold+1)
	c.active = false
	c.offset = imu.Vector3{}
	c.stdDev = imu.Vector3{}
}

func (c *Calibration) Active() bool { return c.active }

// Offset is the gyro bias in deg/s; zero while Calibrating.
func (c *Calibration) Offset() imu.Vector3 { return c.offset }

// StdDev is the per-axis spread of the calibration readings, a stillness check.
func (c *Calibration) StdDev() imu.Vector3 { return c.stdDev }

// Collected is the number of readings held while Calibrating.
func (c *Calibration) Collected() int { return len(c.samples) }

func (c *Calibration) Threshold() int { return c.threshold }
