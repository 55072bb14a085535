// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// Values chosen so that no payload byte equals the terminator.
func testFrame(timestamped bool) Frame {
	f := Frame{
		IMU: [2]imu.Reading{
			{Gyro: imu.Vector3{X: 1, Y: -1, Z: 0.5}, Accel: imu.Vector3{X: 0, Y: 0, Z: 1}},
			{Gyro: imu.Vector3{X: 2, Y: 0.25, Z: -2}, Accel: imu.Vector3{X: 0.5, Y: -0.5, Z: 1}},
		},
	}
	if timestamped {
		f.Timestamp = 1.5
		f.HasTimestamp = true
	}
	return f
}

func TestParseFrame_Legacy(t *testing.T) {
	b := EncodeFrame(testFrame(false))
	require.Len(t, b, LegacyFrameLen)
	assert.Equal(t, byte(ValidMarker), b[48])
	assert.Equal(t, byte(Terminator), b[49])
	assert.Equal(t, -1, bytes.IndexByte(b[:48], Terminator))

	f, err := ParseFrame(b)
	require.NoError(t, err)
	assert.Equal(t, testFrame(false), f)
	assert.False(t, f.HasTimestamp)
}

func TestParseFrame_Timestamped(t *testing.T) {
	b := EncodeFrame(testFrame(true))
	require.Len(t, b, TimestampedFrameLen)
	assert.Equal(t, []byte{0x60, 0xE3, 0x16, 0x00}, b[48:52], "1.5 s as little-endian microseconds")

	f, err := ParseFrame(b)
	require.NoError(t, err)
	assert.True(t, f.HasTimestamp)
	assert.InDelta(t, 1.5, f.Timestamp, 1e-9)
	assert.Equal(t, testFrame(true).IMU, f.IMU)
}

func TestParseFrame_GyroThenAccelLayout(t *testing.T) {
	b := EncodeFrame(testFrame(false))
	// first float of block 0 is gyro X, fourth is accel X
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, b[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, b[12:16])
	// block 1 starts at byte 24
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x40}, b[24:28])
}

func TestParseFrame_Rejects(t *testing.T) {
	good := EncodeFrame(testFrame(false))

	badMarker := append([]byte(nil), good...)
	badMarker[48] = 0x00

	tests := []struct {
		name   string
		frame  []byte
		reason string
	}{
		{"empty", nil, reasonLength},
		{"only terminator", []byte{Terminator}, reasonLength},
		{"short", good[1:], reasonLength},
		{"between lengths", make([]byte, 52), reasonLength},
		{"long", append(make([]byte, 10), good...), reasonLength},
		{"bad marker", badMarker, reasonMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.frame)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDiscarded)
			var fe *frameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.reason, fe.reason)
		})
	}
}

func TestFrame_Sample(t *testing.T) {
	f := testFrame(true)
	s0 := f.Sample(0)
	s1 := f.Sample(1)
	assert.Equal(t, f.IMU[0].Gyro, s0.Gyro)
	assert.Equal(t, f.IMU[1].Accel, s1.Accel)
	assert.True(t, s1.HasTimestamp)
	assert.Equal(t, 1.5, s1.Timestamp)
	assert.Equal(t, f.IMU, s0.IMU, "both blocks travel with the sample")
}
