// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/dronetracker/internal/app"
	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/logging"
)

func main() {
	configPath := flag.String("config", "./dronetracker_config.txt", "path to configuration file")
	flag.Parse()

	logger := logging.NewLogger("gps", "info")
	logger.Info("starting dronetracker GPS producer (NMEA → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger = logging.NewLogger("gps", config.Get().LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunGPSProducer(ctx, logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}
