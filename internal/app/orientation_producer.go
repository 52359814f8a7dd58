// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	"github.com/edaniels/golog"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/orientation"
)

// newOrientationSource picks the mock or the IMU source from the config.
func newOrientationSource(cfg *config.Config, logger golog.Logger) (orientation.Source, error) {
	if cfg.OrientationMode == config.OrientationModeIMU {
		logger.Infow("orientation: using MPU9250", "spi", cfg.IMUSPIDevice, "cs", cfg.IMUCSPin, "calibrate", cfg.IMUCalibrate)
		return orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUCalibrate)
	}
	logger.Infow("orientation: using mock source", "base", cfg.MockBasePose)
	return orientation.NewMockSource(cfg.MockBasePose), nil
}

// RunOrientationProducer reads poses at the configured interval and
// publishes them as rotation-vector samples.
func RunOrientationProducer(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	src, err := newOrientationSource(cfg, logger)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDOrientation, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ticker := time.NewTicker(time.Duration(cfg.OrientationSampleInterval) * time.Millisecond)
	defer ticker.Stop()
	logger.Infof("orientation: publishing to %s every %dms", cfg.TopicOrientation, cfg.OrientationSampleInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("orientation: shutting down")
			return nil
		case t := <-ticker.C:
			pose, err := src.Next()
			if err != nil {
				logger.Warnw("orientation: source error", "error", err)
				continue
			}
			sample := pose.Sample()
			sample.Time = t.UTC()
			if err := publishJSON(client, cfg.TopicOrientation, sample); err != nil {
				logger.Warnw("orientation: publish error", "error", err)
				continue
			}
			logger.Debugw("orientation: tick", "roll", pose.Roll, "pitch", pose.Pitch, "yaw", pose.Yaw)
		}
	}
}
