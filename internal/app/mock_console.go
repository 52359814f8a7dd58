// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"time"

	"github.com/edaniels/golog"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/orientation"
)

// RunMockConsole runs the whole overlay pipeline locally, without MQTT: a
// mock orientation source at a fixed location, printing every frame.
func RunMockConsole(ctx context.Context, device geodesy.GeoPoint, logger golog.Logger) error {
	cfg := config.Get()

	tr, err := newTracker(cfg, logger)
	if err != nil {
		return err
	}
	if err := tr.UpdateLocation(device); err != nil {
		return err
	}

	src := orientation.NewMockSource(cfg.MockBasePose)
	p := &consolePrinter{out: os.Stdout}

	ticker := time.NewTicker(time.Duration(cfg.OrientationSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pose, err := src.Next()
		if err != nil {
			return err
		}
		if err := tr.UpdateSample(pose.Sample()); err != nil {
			logger.Warnw("console: bad sample", "error", err)
			continue
		}
		frame, ok, err := tr.Render()
		if err != nil {
			return err
		}
		if ok {
			p.printf("ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n", pose.Roll, pose.Pitch, pose.Yaw)
			p.frame(frame)
		}
	}
}
