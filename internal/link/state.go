// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"errors"
	"io"
	"log"
	"math"

	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/metrics"
)

// StateRecordLen is the size of one DroneState reply: five IMU blocks
// (raw×2, calibrated×2, main) followed by a W,X,Y,Z float32 quaternion.
const StateRecordLen = 5*floatsPerIMU*4 + 4*4

// unitTolerance bounds how far the device quaternion's norm may stray from 1.
// A misaligned record decodes to values far outside it.
const unitTolerance = 1e-3

// ParseDroneState decodes one fixed-length record. The quaternion must be
// close to unit length.
func ParseDroneState(b []byte) (imu.DroneState, error) {
	if len(b) != StateRecordLen {
		return imu.DroneState{}, &frameError{reason: reasonLength, length: len(b)}
	}
	const block = floatsPerIMU * 4

	var s imu.DroneState
	s.Raw[0] = decodeReading(b[0*block:])
	s.Raw[1] = decodeReading(b[1*block:])
	s.Calibrated[0] = decodeReading(b[2*block:])
	s.Calibrated[1] = decodeReading(b[3*block:])
	s.Main = decodeReading(b[4*block:])

	q := b[5*block:]
	s.Orientation = imu.Quaternion{
		W: decodeFloat(q[0:]),
		X: decodeFloat(q[4:]),
		Y: decodeFloat(q[8:]),
		Z: decodeFloat(q[12:]),
	}
	n := math.Sqrt(s.Orientation.W*s.Orientation.W + s.Orientation.X*s.Orientation.X +
		s.Orientation.Y*s.Orientation.Y + s.Orientation.Z*s.Orientation.Z)
	if !(math.Abs(n-1) <= unitTolerance) {
		return imu.DroneState{}, &frameError{reason: reasonValue, length: len(b)}
	}
	return s, nil
}

// EncodeDroneState is the inverse of ParseDroneState.
func EncodeDroneState(s imu.DroneState) []byte {
	const block = floatsPerIMU * 4
	b := make([]byte, StateRecordLen)
	encodeReading(b[0*block:], s.Raw[0])
	encodeReading(b[1*block:], s.Raw[1])
	encodeReading(b[2*block:], s.Calibrated[0])
	encodeReading(b[3*block:], s.Calibrated[1])
	encodeReading(b[4*block:], s.Main)
	q := b[5*block:]
	encodeFloat(q[0:], s.Orientation.W)
	encodeFloat(q[4:], s.Orientation.X)
	encodeFloat(q[8:], s.Orientation.Y)
	encodeFloat(q[12:], s.Orientation.Z)
	return b
}

// StateDecoder reads fixed-length DroneState records. There is no delimiter;
// every request gets one whole reply, so a record still incomplete when the
// read times out is dropped and the next reply starts aligned.
type StateDecoder struct {
	r   io.Reader
	buf [StateRecordLen]byte
	n   int
}

func NewStateDecoder(r io.Reader) *StateDecoder {
	return &StateDecoder{r: r}
}

func (d *StateDecoder) Next() (imu.Sample, error) {
	for d.n < StateRecordLen {
		n, err := d.r.Read(d.buf[d.n:])
		d.n += n
		if d.n == StateRecordLen {
			break
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				metrics.ReadTimeouts.Inc()
				if d.n > 0 {
					metrics.FramesDiscarded.WithLabelValues(reasonLength).Inc()
					log.Printf("link: dropping partial state record (%d of %d bytes)", d.n, StateRecordLen)
					d.n = 0
				}
			}
			return nil, err
		}
	}
	d.n = 0

	s, err := ParseDroneState(d.buf[:])
	if err != nil {
		var fe *frameError
		if errors.As(err, &fe) {
			metrics.FramesDiscarded.WithLabelValues(fe.reason).Inc()
		}
		log.Printf("link: dropping state record: %v", err)
		return nil, err
	}
	metrics.FramesDecoded.Inc()
	return s, nil
}
