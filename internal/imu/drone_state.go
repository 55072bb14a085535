// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Quaternion is a wire-level orientation, W first.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DroneState is the richer record returned by the device in request mode.
// Orientation is fused on the device, so estimators only remap it.
type DroneState struct {
	Raw         [2]Reading `json:"raw"`
	Calibrated  [2]Reading `json:"calibrated"`
	Main        Reading    `json:"main"`
	Orientation Quaternion `json:"orientation"`
}

func (DroneState) isSample() {}
