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

	"github.com/relabs-tech/attitude_link/internal/app"
	"github.com/relabs-tech/attitude_link/internal/config"
	"github.com/relabs-tech/attitude_link/internal/link"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file (defaults otherwise)")
	flag.Parse()

	log.Println("starting attitude-link (mock console)")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := link.MockOptions{Protocol: cfg.LinkProtocol, Timestamped: true}
	if err := app.RunConsole(ctx, cfg, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}
