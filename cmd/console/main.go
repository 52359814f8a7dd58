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
	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/logging"
)

func main() {
	configPath := flag.String("config", "./dronetracker_config.txt", "path to configuration file")
	lat := flag.Float64("lat", 0, "device latitude in degrees")
	lon := flag.Float64("lon", 0, "device longitude in degrees")
	alt := flag.Float64("alt", 0, "device altitude in meters")
	flag.Parse()

	logger := logging.NewLogger("console", "info")
	logger.Info("starting dronetracker (mock console)")

	if err := config.InitGlobal(*configPath); err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger = logging.NewLogger("console", config.Get().LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, geodesy.NewGeoPoint(*lat, *lon, *alt), logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}
