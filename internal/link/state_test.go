// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/metrics"
)

func testState() imu.DroneState {
	r := testFrame(false).IMU
	return imu.DroneState{
		Raw:         r,
		Calibrated:  [2]imu.Reading{r[1], r[0]},
		Main:        r[0],
		Orientation: imu.Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5},
	}
}

func TestDroneState_RecordLayout(t *testing.T) {
	b := EncodeDroneState(testState())
	require.Len(t, b, 136)
	// quaternion W is the first float after the five IMU blocks
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x3F}, b[120:124])

	s, err := ParseDroneState(b)
	require.NoError(t, err)
	assert.Equal(t, testState(), s)
}

func TestParseDroneState_RejectsDegenerateQuaternion(t *testing.T) {
	for name, q := range map[string]imu.Quaternion{
		"zero": {},
		"nan":  {W: math.NaN()},
		"inf":  {X: math.Inf(1)},
		"long": {W: 2},
		"tiny": {W: 1e-20},
	} {
		t.Run(name, func(t *testing.T) {
			s := testState()
			s.Orientation = q
			_, err := ParseDroneState(EncodeDroneState(s))
			assert.ErrorIs(t, err, ErrDiscarded)
		})
	}
}

func TestStateDecoder_PartialRecordDroppedOnTimeout(t *testing.T) {
	rec := EncodeDroneState(testState())
	port := newFakePort(
		data(rec[:50]),
		fail(ErrTimeout),
		data(rec),
	)
	d := NewStateDecoder(port)

	_, err := d.Next()
	assert.ErrorIs(t, err, ErrTimeout)

	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, testState(), s)
}

func TestStateDecoder_RealignsAfterLostByte(t *testing.T) {
	rec := EncodeDroneState(testState())
	port := newFakePort(
		data(rec[1:]), // first byte lost on the line
		fail(ErrTimeout),
		data(rec),
		data(rec),
	)
	d := NewStateDecoder(port)

	_, err := d.Next()
	assert.ErrorIs(t, err, ErrTimeout)

	for i := 0; i < 2; i++ {
		s, err := d.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, testState(), s)
	}
}

func TestParseDroneState_RejectsMisalignedRecord(t *testing.T) {
	rec := EncodeDroneState(testState())
	shifted := concat(rec[1:], rec[:1])
	_, err := ParseDroneState(shifted)
	var fe *frameError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, reasonValue, fe.reason)
}

func TestStateDecoder_BackToBackRecords(t *testing.T) {
	second := testState()
	second.Orientation = imu.Quaternion{W: 1}
	port := newFakePort(data(concat(EncodeDroneState(testState()), EncodeDroneState(second))))
	d := NewStateDecoder(port)

	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, testState(), s)

	s, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, imu.Quaternion{W: 1}, s.(imu.DroneState).Orientation)
}

func TestStateDecoder_DiscardMetricsCarryReason(t *testing.T) {
	discarded := func(reason string) float64 {
		return testutil.ToFloat64(metrics.FramesDiscarded.WithLabelValues(reason))
	}
	bad := testState()
	bad.Orientation = imu.Quaternion{}
	rec := EncodeDroneState(testState())
	port := newFakePort(
		data(EncodeDroneState(bad)),
		data(rec[:10]),
		fail(ErrTimeout),
	)
	d := NewStateDecoder(port)
	value, length := discarded(reasonValue), discarded(reasonLength)

	_, err := d.Next()
	require.ErrorIs(t, err, ErrDiscarded)
	assert.Equal(t, value+1, discarded(reasonValue))
	assert.Equal(t, length, discarded(reasonLength))

	_, err = d.Next()
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, length+1, discarded(reasonLength))
	assert.Equal(t, value+1, discarded(reasonValue))
}
