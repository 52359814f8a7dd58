// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/gps"
	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/tracker"
)

// consolePrinter formats the MQTT traffic as one line per message. Callbacks
// run on paho goroutines, so writes are serialized.
type consolePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *consolePrinter) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *consolePrinter) sample(s orientation.RotationSample) {
	if len(s.Values) < 4 {
		p.printf("[ORNT] invalid sample %v\n", s.Values)
		return
	}
	p.printf("[ORNT] x=%7.4f y=%7.4f z=%7.4f w=%7.4f\n", s.Values[0], s.Values[1], s.Values[2], s.Values[3])
}

func (p *consolePrinter) fix(f gps.Fix) {
	alt := "n/a"
	if f.HasAltitude {
		alt = fmt.Sprintf("%.1fm", f.Altitude)
	}
	p.printf("[GPS ] lat=%.6f lon=%.6f alt=%s speed=%.1fkn course=%.1f° validity=%s\n",
		f.Latitude, f.Longitude, alt, f.SpeedKnots, f.CourseDeg, f.Validity)
}

func (p *consolePrinter) drone(topic string, m DroneMessage) {
	t := m.Target(topic)
	p.printf("[DRON] %s (%s) at %s\n", t.ID, t.Name, t.Location)
}

func (p *consolePrinter) frame(f tracker.Frame) {
	p.printf("[OVLY] %dx%d rot=%d location=%t points=%d\n",
		f.Width, f.Height, f.ScreenRotation, f.LocationAvailable, len(f.Points))
	for _, pt := range f.Points {
		p.printf("       %-12s x=%7.1f y=%7.1f dist=%7.1fm brg=%5.1f° on_screen=%t\n",
			pt.Name, pt.X, pt.Y, pt.Distance, pt.Bearing, pt.OnScreen)
	}
}

// RunConsoleMQTT prints every message on the tracker's topics until ctx is
// done.
func RunConsoleMQTT(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	p := &consolePrinter{out: os.Stdout}
	err = multierr.Combine(
		subscribeJSON(client, cfg.TopicOrientation, logger, func(_ string, s orientation.RotationSample) { p.sample(s) }),
		subscribeJSON(client, cfg.TopicLocation, logger, func(_ string, f gps.Fix) { p.fix(f) }),
		subscribeJSON(client, cfg.DroneTopicFilter(), logger, p.drone),
		subscribeJSON(client, cfg.TopicOverlay, logger, func(_ string, f tracker.Frame) { p.frame(f) }),
	)
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
