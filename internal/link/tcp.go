// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const dialTimeout = 5 * time.Second

type tcpConn struct {
	net.Conn
	readTimeout time.Duration
}

// DialTCP connects to host:port. No handshake is performed.
func DialTCP(addr string, readTimeout time.Duration) (Transport, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConnTransport(conn, readTimeout), nil
}

// NewConnTransport wraps an established connection. Each Read gets a fresh
// deadline; deadline expiry becomes ErrTimeout.
func NewConnTransport(conn net.Conn, readTimeout time.Duration) Transport {
	return &tcpConn{Conn: conn, readTimeout: readTimeout}
}

func (c *tcpConn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.Conn.Read(b)
	var ne net.Error
	if err != nil && errors.As(err, &ne) && ne.Timeout() {
		if n > 0 {
			return n, nil
		}
		return 0, ErrTimeout
	}
	return n, err
}
