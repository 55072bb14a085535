// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// Frame is one validated delimited frame: two IMU blocks, optional timestamp.
type Frame struct {
	IMU          [2]imu.Reading
	Timestamp    float64 // seconds
	HasTimestamp bool
}

// Sample reduces the frame to the IMU block at index (0 or 1).
func (f Frame) Sample(index int) imu.RawSample {
	r := f.IMU[index&1]
	return imu.RawSample{
		Gyro:         r.Gyro,
		Accel:        r.Accel,
		IMU:          f.IMU,
		Timestamp:    f.Timestamp,
		HasTimestamp: f.HasTimestamp,
	}
}

// discard reasons, also used as metric labels
const (
	reasonLength = "length"
	reasonMarker = "marker"
	reasonValue  = "value"
)

type frameError struct {
	reason string
	length int
}

func (e *frameError) Error() string {
	return fmt.Sprintf("invalid frame (%s, %d bytes)", e.reason, e.length)
}

func (e *frameError) Unwrap() error { return ErrDiscarded }

// ParseFrame validates and decodes one frame including its marker and terminator.
func ParseFrame(b []byte) (Frame, error) {
	n := len(b)
	if n != LegacyFrameLen && n != TimestampedFrameLen {
		return Frame{}, &frameError{reason: reasonLength, length: n}
	}
	if b[n-1] != Terminator || b[n-2] != ValidMarker {
		return Frame{}, &frameError{reason: reasonMarker, length: n}
	}

	var f Frame
	for i := range f.IMU {
		f.IMU[i] = decodeReading(b[i*floatsPerIMU*4:])
	}
	if n == TimestampedFrameLen {
		us := binary.LittleEndian.Uint32(b[payloadFloatLen:])
		f.Timestamp = float64(us) / 1e6
		f.HasTimestamp = true
	}
	return f, nil
}

// EncodeFrame is the inverse of ParseFrame. Used by the simulated device.
func EncodeFrame(f Frame) []byte {
	n := LegacyFrameLen
	if f.HasTimestamp {
		n = TimestampedFrameLen
	}
	b := make([]byte, n)
	for i, r := range f.IMU {
		encodeReading(b[i*floatsPerIMU*4:], r)
	}
	if f.HasTimestamp {
		binary.LittleEndian.PutUint32(b[payloadFloatLen:], uint32(math.Round(f.Timestamp*1e6)))
	}
	b[n-2] = ValidMarker
	b[n-1] = Terminator
	return b
}

func decodeFloat(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func encodeFloat(b []byte, v float64) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
}

// decodeReading reads gyro xyz then accel xyz.
func decodeReading(b []byte) imu.Reading {
	return imu.Reading{
		Gyro:  imu.Vector3{X: decodeFloat(b[0:]), Y: decodeFloat(b[4:]), Z: decodeFloat(b[8:])},
		Accel: imu.Vector3{X: decodeFloat(b[12:]), Y: decodeFloat(b[16:]), Z: decodeFloat(b[20:])},
	}
}

func encodeReading(b []byte, r imu.Reading) {
	for i, v := range []float64{r.Gyro.X, r.Gyro.Y, r.Gyro.Z, r.Accel.X, r.Accel.Y, r.Accel.Z} {
		encodeFloat(b[i*4:], v)
	}
}
