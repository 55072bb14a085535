// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/attitude_link/internal/config"
	"github.com/relabs-tech/attitude_link/internal/imu"
	"github.com/relabs-tech/attitude_link/internal/link"
)

// RunAttitudeLink connects to the device and runs the reader, the tracker and
// the optional web and MQTT surfaces until ctx ends or one of them fails.
func RunAttitudeLink(ctx context.Context, cfg *config.Config) error {
	opts := cfg.LinkOptions()
	log.Printf("attitude-link: opening %s (%s protocol)", opts, cfg.LinkProtocol)

	transport, err := link.Open(ctx, link.OpenerFor(opts), opts.RetryInterval)
	if err != nil {
		return err
	}
	return run(ctx, cfg, transport)
}

// run wires everything around an already open transport.
func run(ctx context.Context, cfg *config.Config, transport link.Transport) error {
	samples := new(link.Slot[imu.Sample])
	commands := new(link.Slot[link.Command])

	reader := link.NewReader(transport, cfg.LinkProtocol, cfg.LinkIMUIndex, samples, commands)
	tracker := NewTracker(cfg, samples, commands)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			transport.Close()
			return err
		}
		defer client.Disconnect(250)
		log.Printf("attitude-link: connected to MQTT broker at %s", cfg.MQTTBroker)

		tracker.AddSink(NewPublisher(client, cfg.TopicOrientation, cfg.TopicIMURaw))
		if err := SubscribeCommands(client, cfg.TopicCommand, tracker); err != nil {
			transport.Close()
			return err
		}
	}

	if cfg.WebServerPort > 0 {
		hub := NewHub(tracker)
		tracker.AddSink(hub)
		g.Go(func() error {
			return serveWeb(ctx, cfg.WebServerPort, NewWebHandler(tracker, hub))
		})
	}

	g.Go(func() error {
		return reader.Run(ctx)
	})
	g.Go(func() error {
		return tracker.Run(ctx, cfg.TickInterval)
	})

	return g.Wait()
}
