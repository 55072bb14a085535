// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Vector3 is a three-axis reading in device-body axes.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o per axis.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * f per axis.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Norm is the euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Reading is one IMU block as shipped on the wire.
type Reading struct {
	Gyro  Vector3 `json:"gyro"`  // deg/s
	Accel Vector3 `json:"accel"` // g
}

// Sample is either a RawSample (host-side fusion) or a DroneState
// (fusion already done on the device). The set is closed.
type Sample interface {
	isSample()
}

// RawSample is one decoded telemetry frame reduced to the IMU that feeds
// the estimators. IMU keeps both blocks of the frame for raw consumers.
type RawSample struct {
	Gyro  Vector3    `json:"gyro"`  // deg/s, body axes
	Accel Vector3    `json:"accel"` // g, body axes
	IMU   [2]Reading `json:"imu"`

	// Timestamp is device time in seconds, present only on timestamped frames.
	Timestamp    float64 `json:"timestamp,omitempty"`
	HasTimestamp bool    `json:"has_timestamp"`
}

func (RawSample) isSample() {}
