// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/attitude_link/internal/app"
	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/link"
)

func main() {
	addr := flag.String("addr", ":9922", "listen address")
	protocol := flag.String("protocol", "stream", "stream or request")
	period := flag.Duration("period", 10*time.Millisecond, "frame period in stream mode")
	timestamped := flag.Bool("timestamped", true, "send 54-byte frames with a device timestamp")
	biasX := flag.Float64("bias-x", 0.5, "gyro X bias, deg/s")
	biasY := flag.Float64("bias-y", -0.3, "gyro Y bias, deg/s")
	flag.Parse()

	p, err := link.ParseProtocol(*protocol)
	if err != nil {
		log.Fatalf("invalid -protocol: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := link.MockOptions{
		Protocol:    p,
		Period:      *period,
		Timestamped: *timestamped,
		Bias:        imu.Vector3{X: *biasX, Y: *biasY},
	}
	if err := app.RunSimDevice(ctx, *addr, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}
