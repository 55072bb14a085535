// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/metrics"
)

// Reader is the task that owns the transport. Each iteration drains a
// pending command, asks for state when polling, reads one frame and hands
// the sample to the consumer.
type Reader struct {
	transport Transport
	protocol  Protocol
	source    FrameSource
	samples   *Slot[imu.Sample]
	commands  *Slot[Command]
}

// NewReader wires a transport to the two handoff slots. imuIndex selects the
// wire IMU block in stream mode.
func NewReader(t Transport, protocol Protocol, imuIndex int, samples *Slot[imu.Sample], commands *Slot[Command]) *Reader {
	var src FrameSource
	if protocol == ProtocolRequest {
		src = NewStateDecoder(t)
	} else {
		src = NewDecoder(t, imuIndex)
	}
	return &Reader{
		transport: t,
		protocol:  protocol,
		source:    src,
		samples:   samples,
		commands:  commands,
	}
}

// Run loops until ctx ends or the transport fails. Timeouts and discarded
// frames are not errors. Any other I/O error is returned and the caller is
// expected to stop the process: a dead link cannot be repaired from here.
// Run closes the transport when it returns.
func (r *Reader) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.transport.Close() })
	defer stop()
	defer r.transport.Close()

	log.Printf("link: reader started (%s protocol)", r.protocol)
	for {
		if err := r.step(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (r *Reader) step() error {
	if cmd, ok := r.commands.TryReceive(); ok {
		if err := r.write([]byte{byte(cmd)}); err != nil {
			return fmt.Errorf("link: send %s: %w", cmd, err)
		}
		metrics.CommandsSent.WithLabelValues(cmd.String()).Inc()
		log.Printf("link: sent %s", cmd)
	}

	if r.protocol == ProtocolRequest {
		if err := r.write(StateRequest); err != nil {
			return fmt.Errorf("link: state request: %w", err)
		}
	}

	s, err := r.source.Next()
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrDiscarded):
		return nil
	case err != nil:
		return fmt.Errorf("link: read: %w", err)
	}

	if r.samples.Send(s) {
		metrics.SamplesOverwritten.Inc()
	}
	return nil
}

func (r *Reader) write(b []byte) error {
	n, err := r.transport.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(b))
	}
	return nil
}
