// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Transport is a duplex byte connection to the device. Reads are bounded by
// the transport's read timeout and report expiry as ErrTimeout.
type Transport interface {
	io.ReadWriteCloser
}

// Kind selects the physical transport.
type Kind int

const (
	KindSerial Kind = iota
	KindTCP
)

func (k Kind) String() string {
	if k == KindTCP {
		return "tcp"
	}
	return "serial"
}

// ParseKind accepts "serial" or "tcp".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serial", "":
		return KindSerial, nil
	case "tcp":
		return KindTCP, nil
	}
	return 0, fmt.Errorf("unknown link transport %q: expected serial or tcp", s)
}

// Options describe how to reach the device.
type Options struct {
	Kind          Kind
	SerialPort    string
	BaudRate      int
	TCPAddr       string
	ReadTimeout   time.Duration
	RetryInterval time.Duration
}

func (o Options) String() string {
	if o.Kind == KindTCP {
		return "tcp://" + o.TCPAddr
	}
	return fmt.Sprintf("%s@%d", o.SerialPort, o.BaudRate)
}

// Opener makes one attempt at opening a transport.
type Opener func() (Transport, error)

// OpenerFor returns the Opener matching opts.Kind.
func OpenerFor(opts Options) Opener {
	if opts.Kind == KindTCP {
		return func() (Transport, error) { return DialTCP(opts.TCPAddr, opts.ReadTimeout) }
	}
	return func() (Transport, error) { return OpenSerial(opts.SerialPort, opts.BaudRate, opts.ReadTimeout) }
}

// Open keeps calling open until it succeeds or ctx ends. A missing or busy
// device at startup is expected, so failures are retried without limit.
func Open(ctx context.Context, open Opener, retryInterval time.Duration) (Transport, error) {
	for attempt := 1; ; attempt++ {
		t, err := open()
		if err == nil {
			if attempt > 1 {
				log.Printf("link: transport opened after %d attempts", attempt)
			}
			return t, nil
		}
		if attempt == 1 {
			log.Printf("link: open failed, retrying until the device appears: %v", err)
		}

		if retryInterval <= 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
