// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// Identity is the zero rotation.
var Identity = quat.Number{Real: 1}

// nearlyParallel is the |dot| above which slerp falls back to nlerp.
const nearlyParallel = 1 - 1e-6

// Normalize scales q to unit length. A degenerate q becomes Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity
	}
	return quat.Scale(1/n, q)
}

func dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// FromAxisAngle builds the rotation of angle radians about axis.
func FromAxisAngle(axis imu.Vector3, angle float64) quat.Number {
	n := axis.Norm()
	if n == 0 || angle == 0 {
		return Identity
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// FromScaledAxis builds a rotation whose axis is v and whose angle is |v|.
func FromScaledAxis(v imu.Vector3) quat.Number {
	return FromAxisAngle(v, v.Norm())
}

// FromEuler composes yaw(Z) * pitch(Y) * roll(X), angles in radians.
func FromEuler(roll, pitch, yaw float64) quat.Number {
	qx := FromAxisAngle(imu.Vector3{X: 1}, roll)
	qy := FromAxisAngle(imu.Vector3{Y: 1}, pitch)
	qz := FromAxisAngle(imu.Vector3{Z: 1}, yaw)
	return quat.Mul(quat.Mul(qz, qy), qx)
}

// ToEuler is the inverse of FromEuler for unit q.
func ToEuler(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sp := 2 * (w*y - z*x)
	pitch = math.Asin(math.Max(-1, math.Min(1, sp)))
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return
}

// ToAxisAngle decomposes unit q. The angle is in [0, pi]; a zero rotation
// returns a zero axis.
func ToAxisAngle(q quat.Number) (axis imu.Vector3, angle float64) {
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	w := math.Min(1, q.Real)
	s := math.Sqrt(1 - w*w)
	if s < 1e-9 {
		return imu.Vector3{}, 0
	}
	return imu.Vector3{X: q.Imag / s, Y: q.Jmag / s, Z: q.Kmag / s}, 2 * math.Acos(w)
}

// Slerp interpolates from a (t=0) to b (t=1) along the shorter arc. The end
// points are returned unchanged.
func Slerp(a, b quat.Number, t float64) quat.Number {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}

	cos := dot(a, b)
	if cos < 0 {
		b = quat.Scale(-1, b)
		cos = -cos
	}
	if cos > nearlyParallel {
		return Normalize(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	return quat.Add(
		quat.Scale(math.Sin((1-t)*theta)/sin, a),
		quat.Scale(math.Sin(t*theta)/sin, b),
	)
}

// SameRotation reports whether a and b rotate alike within tol. q and -q are
// the same rotation.
func SameRotation(a, b quat.Number, tol float64) bool {
	return math.Abs(math.Abs(dot(Normalize(a), Normalize(b)))-1) <= tol
}

func fromWire(q imu.Quaternion) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}
