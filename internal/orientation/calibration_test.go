// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

func TestCalibration_CompletesAfterThreshold(t *testing.T) {
	c := NewCalibration(100)
	for i := 0; i < 100; i++ {
		require.False(t, c.Add(imu.Vector3{X: 1, Y: 2, Z: 3}))
	}
	assert.False(t, c.Active(), "exactly threshold samples is not enough")
	assert.Equal(t, 100, c.Collected())

	assert.True(t, c.Add(imu.Vector3{X: 1, Y: 2, Z: 3}))
	assert.True(t, c.Active())
	assert.Equal(t, imu.Vector3{X: 1, Y: 2, Z: 3}, c.Offset())
	assert.Equal(t, imu.Vector3{}, c.StdDev())
	assert.Zero(t, c.Collected())
}

func TestCalibration_OffsetIsMean(t *testing.T) {
	c := NewCalibration(3)
	for _, g := range []imu.Vector3{{X: 1}, {X: 2}, {X: 3}, {X: 6, Z: -4}} {
		c.Add(g)
	}
	require.True(t, c.Active())
	assert.InDelta(t, 3.0, c.Offset().X, 1e-12)
	assert.InDelta(t, -1.0, c.Offset().Z, 1e-12)
	assert.Greater(t, c.StdDev().X, 0.0)
}

func TestCalibration_IgnoresSamplesOnceActive(t *testing.T) {
	c := NewCalibration(1)
	c.Add(imu.Vector3{Y: 1})
	c.Add(imu.Vector3{Y: 1})
	require.True(t, c.Active())

	assert.False(t, c.Add(imu.Vector3{Y: 100}))
	assert.Equal(t, 1.0, c.Offset().Y)
}

func TestCalibration_Reset(t *testing.T) {
	c := NewCalibration(1)
	c.Add(imu.Vector3{Z: 5})
	c.Add(imu.Vector3{Z: 5})
	require.True(t, c.Active())

	c.Reset()
	assert.False(t, c.Active())
	assert.Equal(t, imu.Vector3{}, c.Offset())
	assert.Zero(t, c.Collected())
}

func TestCalibration_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultCalibrationSamples, NewCalibration(0).Threshold())
}
