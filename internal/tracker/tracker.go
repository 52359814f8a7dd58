// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracker keeps the latest inputs of the overlay pipeline and renders
// frames from them. Updates arrive from MQTT callbacks and websocket clients
// on different goroutines; the last write wins.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/overlay"
	"github.com/relabs-tech/dronetracker/internal/projection"
)

// ErrNoFrame is returned by Latest before the first frame was rendered.
var ErrNoFrame = errors.New("no frame rendered yet")

// Config holds the render settings of a Tracker.
type Config struct {
	Near, Far float64
	Frame     overlay.WorldFrame
	Model     geodesy.Model
	// DroneTTL drops drones that have not reported for this long. Zero keeps
	// them forever.
	DroneTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Frame is one rendered overlay.
type Frame struct {
	Time              time.Time             `json:"time"`
	Width             int                   `json:"width"`
	Height            int                   `json:"height"`
	ScreenRotation    int                   `json:"screen_rotation"`
	Transform         [16]float64           `json:"transform"`
	Points            []overlay.ScreenPoint `json:"points"`
	LocationAvailable bool                  `json:"location_available"`
}

type drone struct {
	target overlay.Target
	seen   time.Time
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	logger golog.Logger
	cfg    Config

	viewport   projection.Viewport
	projection *projection.Projection
	rotation   orientation.ScreenRotation
	sample     *orientation.RotationSample
	// rotationMatrix is the last matrix resolved from a valid sample.
	rotationMatrix *mgl64.Mat4
	location       *geodesy.GeoPoint
	static         []overlay.Target
	drones         map[string]drone
	last           *Frame
}

// New returns a Tracker that draws the given static targets.
func New(cfg Config, static []overlay.Target, logger golog.Logger) (*Tracker, error) {
	if cfg.Near == 0 && cfg.Far == 0 {
		cfg.Near, cfg.Far = projection.DefaultNear, projection.DefaultFar
	}
	// Check the clip planes once up front with a valid viewport.
	if _, err := projection.Build(projection.Viewport{Width: 1, Height: 1}, cfg.Near, cfg.Far); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	for _, t := range static {
		if err := t.Location.Validate(); err != nil {
			return nil, errors.Wrapf(err, "target %q", t.ID)
		}
	}
	return &Tracker{
		logger: logger,
		cfg:    cfg,
		static: append([]overlay.Target(nil), static...),
		drones: map[string]drone{},
	}, nil
}

// SetViewport rebuilds the projection for a new layout. On error the previous
// projection is kept.
func (t *Tracker) SetViewport(vp projection.Viewport) error {
	p, err := projection.Build(vp, t.cfg.Near, t.cfg.Far)
	if err != nil {
		t.logger.Warnw("tracker: keeping previous projection", "viewport", vp.String(), "error", err)
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewport = vp
	t.projection = &p
	return nil
}

// SetLayout changes the viewport and the display rotation together. Nothing
// changes unless the new projection can be built.
func (t *Tracker) SetLayout(vp projection.Viewport, rot orientation.ScreenRotation) error {
	p, err := projection.Build(vp, t.cfg.Near, t.cfg.Far)
	if err != nil {
		t.logger.Warnw("tracker: keeping previous projection", "viewport", vp.String(), "error", err)
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewport = vp
	t.projection = &p
	t.setRotationLocked(rot)
	return nil
}

// ScreenRotation returns the current display rotation.
func (t *Tracker) ScreenRotation() orientation.ScreenRotation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rotation
}

// SetScreenRotation changes the display rotation and re-resolves the last
// sample with it.
func (t *Tracker) SetScreenRotation(rot orientation.ScreenRotation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setRotationLocked(rot)
}

func (t *Tracker) setRotationLocked(rot orientation.ScreenRotation) {
	t.rotation = rot
	if t.sample == nil {
		return
	}
	if m, err := orientation.Resolve(*t.sample, rot); err == nil {
		t.rotationMatrix = &m
	}
}

// UpdateSample resolves a new rotation sample. An invalid sample is reported
// and the previous rotation stays in effect.
func (t *Tracker) UpdateSample(sample orientation.RotationSample) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, err := orientation.Resolve(sample, t.rotation)
	if err != nil {
		return err
	}
	s := orientation.RotationSample{Values: append([]float64(nil), sample.Values...), Time: sample.Time}
	t.sample = &s
	t.rotationMatrix = &m
	return nil
}

// UpdateLocation records the device position.
func (t *Tracker) UpdateLocation(p geodesy.GeoPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.location = &p
	return nil
}

// UpdateDrone adds or moves a live target.
func (t *Tracker) UpdateDrone(target overlay.Target) error {
	if target.ID == "" {
		return errors.New("drone id is required")
	}
	if err := target.Location.Validate(); err != nil {
		return errors.Wrapf(err, "drone %q", target.ID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drones[target.ID] = drone{target: target, seen: t.cfg.Now()}
	return nil
}

// Targets returns the static targets followed by the live drones sorted by
// id. Drones older than the TTL are forgotten.
func (t *Tracker) Targets() []overlay.Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.targetsLocked(t.cfg.Now())
}

func (t *Tracker) targetsLocked(now time.Time) []overlay.Target {
	ids := make([]string, 0, len(t.drones))
	for id, d := range t.drones {
		if t.cfg.DroneTTL > 0 && now.Sub(d.seen) > t.cfg.DroneTTL {
			delete(t.drones, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	targets := make([]overlay.Target, 0, len(t.static)+len(ids))
	targets = append(targets, t.static...)
	for _, id := range ids {
		targets = append(targets, t.drones[id].target)
	}
	return targets
}

// Transform returns the current render transform, or false while the
// projection or the rotation is still missing.
func (t *Tracker) Transform() (mgl64.Mat4, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.projection == nil || t.rotationMatrix == nil {
		return mgl64.Mat4{}, false
	}
	return projection.Compose(*t.projection, *t.rotationMatrix), true
}

// Render projects the targets with the latest inputs and stores the frame.
// It returns false while the projection or the rotation is still missing. A
// missing location is not an error: the frame has no points.
func (t *Tracker) Render() (Frame, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.projection == nil || t.rotationMatrix == nil {
		return Frame{}, false, nil
	}

	now := t.cfg.Now()
	transform := projection.Compose(*t.projection, *t.rotationMatrix)
	points, err := overlay.Project(transform, t.viewport, t.location, t.targetsLocked(now),
		overlay.WithWorldFrame(t.cfg.Frame), overlay.WithGeodesy(t.cfg.Model))
	if err != nil && !errors.Is(err, overlay.ErrLocationUnavailable) {
		return Frame{}, false, err
	}
	if points == nil {
		points = []overlay.ScreenPoint{}
	}

	f := Frame{
		Time:              now,
		Width:             t.viewport.Width,
		Height:            t.viewport.Height,
		ScreenRotation:    t.rotation.Degrees(),
		Transform:         [16]float64(transform),
		Points:            points,
		LocationAvailable: t.location != nil,
	}
	t.last = &f
	return f, true, nil
}

// Latest returns the last rendered frame.
func (t *Tracker) Latest() (Frame, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return Frame{}, ErrNoFrame
	}
	return *t.last, nil
}

// Location returns the last known device location.
func (t *Tracker) Location() (geodesy.GeoPoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.location == nil {
		return geodesy.GeoPoint{}, false
	}
	return *t.location, true
}
