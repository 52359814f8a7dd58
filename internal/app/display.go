// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/gps"
	"github.com/relabs-tech/dronetracker/internal/overlay"
)

const (
	displayWidth  = 128
	displayHeight = 64
	// The radar scope fills the left half of the panel.
	radarCenterX = 32
	radarCenterY = 32
	radarRadius  = 30
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.Mutex

	location     geodesy.GeoPoint
	haveLocation bool
	drones       map[string]seenDrone
	// ttl drops drones that stopped reporting; zero keeps them forever.
	ttl time.Duration
}

type seenDrone struct {
	target overlay.Target
	seen   time.Time
}

func newDisplayData(ttl time.Duration) *DisplayData {
	return &DisplayData{drones: map[string]seenDrone{}, ttl: ttl}
}

func (d *DisplayData) setLocation(p geodesy.GeoPoint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = p
	d.haveLocation = true
}

func (d *DisplayData) addDrone(t overlay.Target, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drones[t.ID] = seenDrone{target: t, seen: now}
}

// snapshot returns the location and the static targets followed by the live
// drones, forgetting drones older than the TTL.
func (d *DisplayData) snapshot(static []overlay.Target, now time.Time) (geodesy.GeoPoint, bool, []overlay.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	targets := append([]overlay.Target(nil), static...)
	for id, sd := range d.drones {
		if d.ttl > 0 && now.Sub(sd.seen) > d.ttl {
			delete(d.drones, id)
			continue
		}
		targets = append(targets, sd.target)
	}
	return d.location, d.haveLocation, targets
}

// blip is a target placed on the radar.
type blip struct {
	name     string
	distance float64
	at       image.Point
}

// radarPoint maps a bearing and distance onto the scope, north up. Targets
// beyond rangeMeters sit on the rim.
func radarPoint(bearingDeg, distance, rangeMeters float64) image.Point {
	r := math.Min(distance/rangeMeters, 1) * radarRadius
	rad := bearingDeg * math.Pi / 180
	return image.Point{
		X: radarCenterX + int(math.Round(r*math.Sin(rad))),
		Y: radarCenterY - int(math.Round(r*math.Cos(rad))),
	}
}

// radarBlips places the targets around device, nearest first.
func radarBlips(device geodesy.GeoPoint, targets []overlay.Target, rangeMeters float64) []blip {
	blips := make([]blip, 0, len(targets))
	for _, t := range targets {
		d := geodesy.Distance(device, t.Location)
		blips = append(blips, blip{
			name:     t.Name,
			distance: d,
			at:       radarPoint(geodesy.Bearing(device, t.Location), d, rangeMeters),
		})
	}
	sort.SliceStable(blips, func(i, j int) bool { return blips[i].distance < blips[j].distance })
	return blips
}

func newDisplayImage() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// drawRadar renders the scope and the nearest target's label.
func drawRadar(blips []blip, haveLocation bool, rangeMeters float64) *image1bit.VerticalLSB {
	img, drawer := newDisplayImage()

	if !haveLocation {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Drone radar"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting fix..."))
		return img
	}

	// Rim and north tick.
	for deg := 0; deg < 360; deg += 3 {
		p := radarPoint(float64(deg), rangeMeters, rangeMeters)
		img.SetBit(p.X, p.Y, image1bit.On)
	}
	for y := radarCenterY - radarRadius - 2; y < radarCenterY-radarRadius; y++ {
		img.SetBit(radarCenterX, y, image1bit.On)
	}
	img.SetBit(radarCenterX, radarCenterY, image1bit.On)

	for _, b := range blips {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				img.SetBit(b.at.X+dx, b.at.Y+dy, image1bit.On)
			}
		}
	}

	drawer.Dot = fixed.P(68, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("%d tgt", len(blips))))
	drawer.Dot = fixed.P(68, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("R %.0fm", rangeMeters)))
	if len(blips) > 0 {
		name := blips[0].name
		if len(name) > 8 {
			name = name[:8]
		}
		drawer.Dot = fixed.P(68, 45)
		drawer.DrawBytes([]byte(name))
		drawer.Dot = fixed.P(68, 58)
		drawer.DrawBytes([]byte(fmt.Sprintf("%.0fm", blips[0].distance)))
	}
	return img
}

func showSplash(dev *ssd1306.Dev) error {
	img, drawer := newDisplayImage()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Drone Tracker"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Looking for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("sats"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// RunDisplay draws a north-up radar of the configured targets and live drones
// around the device on an SSD1306 OLED.
func RunDisplay(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize periph")
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return errors.Wrap(err, "failed to open I2C bus")
	}
	defer bus.Close()

	// The driver always talks to the panel at 0x3C.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return errors.Wrap(err, "failed to initialize display")
	}
	logger.Info("display: initialized")

	if err := showSplash(dev); err != nil {
		logger.Warnw("display: error showing splash", "error", err)
	}

	data := newDisplayData(cfg.DroneTTL)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicLocation, logger, func(_ string, f gps.Fix) {
		if !f.Valid() {
			return
		}
		data.setLocation(f.GeoPoint())
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.DroneTopicFilter(), logger, func(topic string, m DroneMessage) {
		t := m.Target(topic)
		if err := t.Location.Validate(); err != nil {
			logger.Warnw("display: dropping drone", "topic", topic, "error", err)
			return
		}
		data.addDrone(t, time.Now())
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			logger.Info("display: shutting down")
			return dev.Halt()
		case <-ticker.C:
		}

		location, haveLocation, targets := data.snapshot(cfg.Targets, time.Now())

		var blips []blip
		if haveLocation {
			blips = radarBlips(location, targets, cfg.DisplayRangeMeters)
		}
		img := drawRadar(blips, haveLocation, cfg.DisplayRangeMeters)
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			logger.Warnw("display: error updating display", "error", err)
		}
	}
}
