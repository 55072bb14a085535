// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/attitude_link/internal/config"
	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/link"
)

// RunConsole runs the whole pipeline against an in-process MockDevice and
// prints every body's pose. No hardware, broker or web server is needed.
func RunConsole(ctx context.Context, cfg *config.Config, opts link.MockOptions) error {
	dev := link.NewMockDevice(opts)
	samples := new(link.Slot[imu.Sample])
	commands := new(link.Slot[link.Command])

	reader := link.NewReader(dev, opts.Protocol, cfg.LinkIMUIndex, samples, commands)
	tracker := NewTracker(cfg, samples, commands)
	tracker.AddSink(consolePrinter{})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reader.Run(ctx) })
	g.Go(func() error { return tracker.Run(ctx, cfg.TickInterval) })
	return g.Wait()
}

type consolePrinter struct{}

func (consolePrinter) Publish(outs []BodyOutput) {
	for _, out := range outs {
		printOutput(out)
	}
}

func printOutput(out BodyOutput) {
	if out.Calibrating {
		fmt.Printf("[%-6s] calibrating...\n", out.Body)
		return
	}
	fmt.Printf(
		"[%-6s] ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  w=%.2f  %s\n",
		out.Body, out.Pose.Roll, out.Pose.Pitch, out.Pose.Yaw, out.BlendWeight,
		out.Time.Format(time.TimeOnly),
	)
}

func printRaw(raw RawOutput) {
	ts := "-"
	if raw.HasTimestamp {
		ts = fmt.Sprintf("%.6fs", raw.Timestamp)
	}
	for i, r := range raw.IMU {
		fmt.Printf(
			"[RAW %d ] G=(%7.2f %7.2f %7.2f)  A=(%5.2f %5.2f %5.2f)  %s\n",
			i, r.Gyro.X, r.Gyro.Y, r.Gyro.Z, r.Accel.X, r.Accel.Y, r.Accel.Z, ts,
		)
	}
}
