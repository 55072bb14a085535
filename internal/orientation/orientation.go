// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// Pose is the Euler view of an orientation, in degrees, for JSON consumers.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ToPose converts a unit quaternion to roll/pitch/yaw degrees.
func ToPose(q quat.Number) Pose {
	r, p, y := ToEuler(q)
	return Pose{
		Roll:  r * 180.0 / math.Pi,
		Pitch: p * 180.0 / math.Pi,
		Yaw:   y * 180.0 / math.Pi,
	}
}

// AccelTilt computes roll and pitch (radians) from the gravity reaction
// measured by the accelerometer:
//
//	roll  = atan2(-ay, az)
//	pitch = atan2(ax, sqrt(ay² + az²))
//
// Heading is not observable from gravity alone. Near pitch ±90° the roll
// term becomes numerically unstable; no special handling is attempted.
func AccelTilt(a imu.Vector3) (roll, pitch float64) {
	roll = math.Atan2(-a.Y, a.Z)
	pitch = math.Atan2(a.X, math.Hypot(a.Y, a.Z))
	return
}
