// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/attitude_link/internal/link"
)

// RunSimDevice serves a simulated flight controller on addr. Every
// connection gets its own MockDevice.
func RunSimDevice(ctx context.Context, addr string, opts link.MockOptions) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log.Printf("sim-device: listening on %s (%s protocol)", ln.Addr(), opts.Protocol)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			err := serveDevice(ctx, conn, link.NewMockDevice(opts))
			log.Printf("sim-device: %s disconnected: %v", conn.RemoteAddr(), err)
		}()
	}
}

// serveDevice pumps bytes both ways between conn and dev until either side
// closes.
func serveDevice(ctx context.Context, conn net.Conn, dev *link.MockDevice) error {
	log.Printf("sim-device: %s connected", conn.RemoteAddr())
	g, ctx := errgroup.WithContext(ctx)
	context.AfterFunc(ctx, func() {
		conn.Close()
		dev.Close()
	})

	g.Go(func() error {
		buf := make([]byte, 256)
		for {
			n, err := dev.Read(buf)
			if errors.Is(err, link.ErrTimeout) {
				continue
			}
			if err != nil {
				return err
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return err
			}
			if _, err := dev.Write(buf[:n]); err != nil {
				return err
			}
		}
	})
	return g.Wait()
}
