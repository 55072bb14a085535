// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"errors"
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// maxInterCharacterTimeout is the largest VTIME the termios layer accepts.
const maxInterCharacterTimeout = 25500 * time.Millisecond

type serialPort struct {
	io.ReadWriteCloser
}

// OpenSerial opens a serial device in 8N1 with a bounded read. The port is
// opened with MinimumReadSize 0 so a read returns empty once the inter
// character timeout elapses; that empty read is reported as ErrTimeout.
func OpenSerial(path string, baud int, readTimeout time.Duration) (Transport, error) {
	if readTimeout <= 0 || readTimeout > maxInterCharacterTimeout {
		readTimeout = maxInterCharacterTimeout
	}
	// termios counts in tenths of a second
	ms := readTimeout.Milliseconds() / 100 * 100
	if ms == 0 {
		ms = 100
	}

	opts := serial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(ms),
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	return &serialPort{ReadWriteCloser: port}, nil
}

func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, ErrTimeout
	}
	return n, err
}
