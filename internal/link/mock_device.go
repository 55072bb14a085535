// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/attitude_link/internal/imu"
)

// MockOptions configure a MockDevice.
type MockOptions struct {
	Protocol    Protocol
	Period      time.Duration // frame period in stream mode
	Timestamped bool          // emit 54-byte frames
	Bias        imu.Vector3   // constant gyro bias, deg/s
}

// MockDevice emulates the flight controller in-process. It rocks smoothly in
// roll and pitch and speaks the same protocol as the real unit, so it can
// stand in for a Transport.
type MockDevice struct {
	opts  MockOptions
	start time.Time

	mu       sync.Mutex
	out      []byte
	commands []Command
	closed   bool
}

func NewMockDevice(opts MockOptions) *MockDevice {
	if opts.Period <= 0 {
		opts.Period = 10 * time.Millisecond
	}
	return &MockDevice{opts: opts, start: time.Now()}
}

// Attitude returns roll, pitch (deg) and their rates (deg/s) at t seconds.
func Attitude(t float64) (roll, pitch, rollRate, pitchRate float64) {
	roll = 20 * math.Sin(t)
	pitch = 15 * math.Cos(t*0.7)
	rollRate = 20 * math.Cos(t)
	pitchRate = -15 * 0.7 * math.Sin(t*0.7)
	return
}

// FrameAt builds the frame the device would send at t seconds.
func (m *MockDevice) FrameAt(t float64) Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameAt(t)
}

// StateAt builds the DroneState reply at t seconds.
func (m *MockDevice) StateAt(t float64) imu.DroneState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateAt(t)
}

func (m *MockDevice) frameAt(t float64) Frame {
	roll, pitch, rollRate, pitchRate := Attitude(t)
	r := roll * math.Pi / 180
	p := pitch * math.Pi / 180
	bias := m.opts.Bias

	reading := imu.Reading{
		Gyro: imu.Vector3{X: rollRate + bias.X, Y: pitchRate + bias.Y, Z: bias.Z},
		Accel: imu.Vector3{
			X: math.Sin(p),
			Y: -math.Sin(r) * math.Cos(p),
			Z: math.Cos(r) * math.Cos(p),
		},
	}
	return Frame{
		IMU:          [2]imu.Reading{reading, reading},
		Timestamp:    t,
		HasTimestamp: m.opts.Timestamped,
	}
}

// stateAt carries the exact yaw-free attitude as the fused orientation.
func (m *MockDevice) stateAt(t float64) imu.DroneState {
	f := m.frameAt(t)
	roll, pitch, _, _ := Attitude(t)
	hr := roll * math.Pi / 360
	hp := pitch * math.Pi / 360
	return imu.DroneState{
		Raw:        f.IMU,
		Calibrated: f.IMU,
		Main:       f.IMU[0],
		Orientation: imu.Quaternion{
			W: math.Cos(hp) * math.Cos(hr),
			X: math.Cos(hp) * math.Sin(hr),
			Y: math.Sin(hp) * math.Cos(hr),
			Z: -math.Sin(hp) * math.Sin(hr),
		},
	}
}

func (m *MockDevice) elapsed() float64 {
	return time.Since(m.start).Seconds()
}

// Read paces output at the configured period. In request mode it only
// returns replies to earlier requests and otherwise times out.
func (m *MockDevice) Read(b []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if len(m.out) == 0 {
		m.mu.Unlock()
		time.Sleep(m.opts.Period)
		if m.opts.Protocol == ProtocolRequest {
			m.mu.Lock()
			pending := len(m.out) > 0
			m.mu.Unlock()
			if !pending {
				return 0, ErrTimeout
			}
		} else {
			m.mu.Lock()
			m.out = append(m.out, EncodeFrame(m.frameAt(m.elapsed()))...)
			m.mu.Unlock()
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return 0, ErrClosed
		}
	}
	n := copy(b, m.out)
	m.out = m.out[n:]
	m.mu.Unlock()
	return n, nil
}

// Write accepts state requests and command opcodes.
func (m *MockDevice) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == StateRequest[0] && i+1 < len(b) && b[i+1] == StateRequest[1]:
			m.out = append(m.out, EncodeDroneState(m.stateAt(m.elapsed()))...)
			i++
		case Command(b[i]) == CalibrateGyro:
			m.commands = append(m.commands, CalibrateGyro)
			m.opts.Bias = imu.Vector3{}
			log.Printf("mock device: gyro recalibrated")
		case Command(b[i]) == CalibrateAccel:
			m.commands = append(m.commands, CalibrateAccel)
			log.Printf("mock device: accel recalibrated")
		}
	}
	return len(b), nil
}

// Commands returns the opcodes received so far.
func (m *MockDevice) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
