// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/link"
)

func TestServeDevice_RequestReply(t *testing.T) {
	host, device := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := link.NewMockDevice(link.MockOptions{Protocol: link.ProtocolRequest, Period: time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- serveDevice(ctx, device, dev) }()

	tr := link.NewConnTransport(host, time.Second)
	_, err := tr.Write(link.StateRequest)
	require.NoError(t, err)

	s, err := link.NewStateDecoder(tr).Next()
	require.NoError(t, err)
	q := s.(imu.DroneState).Orientation
	assert.InDelta(t, 1, math.Sqrt(q.W*q.W+q.X*q.X+q.Y*q.Y+q.Z*q.Z), 1e-6)

	_, err = tr.Write([]byte{byte(link.CalibrateGyro)})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(dev.Commands()) == 1
	}, time.Second, time.Millisecond)

	tr.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("device did not stop after the host hung up")
	}
}

func TestPublisher_Topic(t *testing.T) {
	p := NewPublisher(nil, "attitude/orientation/", "")
	assert.Equal(t, "attitude/orientation/both", p.Topic("both"))
	p.PublishRaw(RawOutput{}) // no raw topic, nothing is sent
}
