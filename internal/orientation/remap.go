// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// Remap re-expresses a rotation in another axis convention: display axis i
// is sign[i] * body axis perm[i]. Only proper rotations (determinant +1) are
// provided so the angle carries over unchanged.
type Remap struct {
	name string
	perm [3]int
	sign [3]float64
}

var (
	// IdentityRemap keeps body axes.
	IdentityRemap = Remap{name: "identity", perm: [3]int{0, 1, 2}, sign: [3]float64{1, 1, 1}}
	// ZUpToYUp maps a Z-up body frame to a Y-up display frame:
	// (x, y, z) -> (x, z, -y).
	ZUpToYUp = Remap{name: "zup_to_yup", perm: [3]int{0, 2, 1}, sign: [3]float64{1, 1, -1}}
)

// ParseRemap looks a remap up by name.
func ParseRemap(s string) (Remap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identity", "":
		return IdentityRemap, nil
	case "zup_to_yup":
		return ZUpToYUp, nil
	}
	return Remap{}, fmt.Errorf("unknown remap %q: expected identity or zup_to_yup", s)
}

func (r Remap) String() string {
	if r.name == "" {
		return IdentityRemap.name
	}
	return r.name
}

// Apply decomposes q into axis and angle, remaps the axis, and rebuilds the
// quaternion with the same angle.
func (r Remap) Apply(q quat.Number) quat.Number {
	if r.name == "" {
		r = IdentityRemap
	}
	axis, angle := ToAxisAngle(Normalize(q))
	if angle == 0 {
		return Identity
	}
	in := [3]float64{axis.X, axis.Y, axis.Z}
	out := imu.Vector3{
		X: r.sign[0] * in[r.perm[0]],
		Y: r.sign[1] * in[r.perm[1]],
		Z: r.sign[2] * in[r.perm[2]],
	}
	return FromAxisAngle(out, angle)
}
