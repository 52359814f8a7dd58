// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/gps"
	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/tracker"
)

// newTracker builds the session from the configuration.
func newTracker(cfg *config.Config, logger golog.Logger) (*tracker.Tracker, error) {
	tr, err := tracker.New(tracker.Config{
		Near:     cfg.NearPlane,
		Far:      cfg.FarPlane,
		Frame:    cfg.WorldFrame,
		Model:    cfg.GeodesyModel,
		DroneTTL: cfg.DroneTTL,
	}, cfg.Targets, logger)
	if err != nil {
		return nil, err
	}
	if err := tr.SetLayout(cfg.Viewport(), cfg.ScreenRotation); err != nil {
		return nil, err
	}
	return tr, nil
}

// RunTracker subscribes to orientation, location and drone topics, renders
// the overlay on every orientation sample, publishes each frame and serves
// it to browsers until ctx is done.
func RunTracker(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	tr, err := newTracker(cfg, logger)
	if err != nil {
		return err
	}
	logger.Infow("tracker: ready",
		"viewport", cfg.Viewport().String(),
		"rotation", cfg.ScreenRotation.String(),
		"frame", cfg.WorldFrame.String(),
		"geodesy", cfg.GeodesyModel.String(),
		"targets", len(cfg.Targets))

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := newOverlayServer(tr, logger, func(f tracker.Frame) {
		if err := publishJSON(client, cfg.TopicOverlay, f); err != nil {
			logger.Warnw("tracker: frame publish error", "error", err)
		}
	})

	err = multierr.Combine(
		subscribeJSON(client, cfg.TopicOrientation, logger, func(_ string, s orientation.RotationSample) {
			if err := tr.UpdateSample(s); err != nil {
				// The previous rotation stays in effect.
				logger.Debugw("tracker: dropping orientation sample", "error", err)
				return
			}
			srv.render()
		}),
		subscribeJSON(client, cfg.TopicLocation, logger, func(_ string, f gps.Fix) {
			if !f.Valid() {
				logger.Debugw("tracker: ignoring void fix", "validity", f.Validity)
				return
			}
			if err := tr.UpdateLocation(f.GeoPoint()); err != nil {
				logger.Warnw("tracker: bad location", "error", err)
			}
		}),
		subscribeJSON(client, cfg.DroneTopicFilter(), logger, func(topic string, m DroneMessage) {
			if err := tr.UpdateDrone(m.Target(topic)); err != nil {
				logger.Warnw("tracker: bad drone position", "topic", topic, "error", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.handler(cfg.WebDir),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpServer.RegisterOnShutdown(srv.closeClients)
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("tracker: web server listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "web server")
	case <-ctx.Done():
	}

	logger.Info("tracker: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
