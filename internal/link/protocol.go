// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link owns the byte-stream connection to the flight controller:
// transports, wire framing, the single-slot handoffs and the reader task.
package link

import (
	"errors"
	"fmt"
	"strings"
)

// Wire constants.
const (
	Terminator  byte = 0xFF // last byte of every delimited frame
	ValidMarker byte = 0xFE // byte right before the terminator

	LegacyFrameLen      = 50 // 12 floats + marker + terminator
	TimestampedFrameLen = 54 // 12 floats + u32 µs timestamp + marker + terminator

	floatsPerFrame  = 12
	floatsPerIMU    = 6
	payloadFloatLen = floatsPerFrame * 4
)

// StateRequest asks a request-mode device for one DroneState record.
var StateRequest = []byte{3, 2}

var (
	// ErrTimeout is returned when a bounded read saw no data. It is not a failure.
	ErrTimeout = errors.New("link: read timeout")
	// ErrDiscarded is returned when a frame was read but failed validation.
	ErrDiscarded = errors.New("link: frame discarded")
	// ErrClosed is returned by transports used after Close.
	ErrClosed = errors.New("link: transport closed")
)

// Protocol selects how the reader talks to the device.
type Protocol int

const (
	// ProtocolStream: the device pushes delimited 50/54-byte frames unsolicited.
	ProtocolStream Protocol = iota
	// ProtocolRequest: the host polls with StateRequest and gets a DroneState back.
	ProtocolRequest
)

func (p Protocol) String() string {
	switch p {
	case ProtocolStream:
		return "stream"
	case ProtocolRequest:
		return "request"
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

// ParseProtocol accepts "stream" or "request".
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "":
		return ProtocolStream, nil
	case "request":
		return ProtocolRequest, nil
	}
	return 0, fmt.Errorf("unknown link protocol %q: expected stream or request", s)
}

// Command is a single-byte device opcode (DroneCmd).
type Command byte

const (
	CalibrateAccel Command = 1
	CalibrateGyro  Command = 2
)

func (c Command) String() string {
	switch c {
	case CalibrateAccel:
		return "calibrate_accel"
	case CalibrateGyro:
		return "calibrate_gyro"
	}
	return fmt.Sprintf("command(%d)", byte(c))
}

// ParseCommand maps the names used by the web and MQTT surfaces to opcodes.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "calibrate_accel", "accel":
		return CalibrateAccel, nil
	case "calibrate_gyro", "gyro":
		return CalibrateGyro, nil
	}
	return 0, fmt.Errorf("unknown command %q", s)
}
