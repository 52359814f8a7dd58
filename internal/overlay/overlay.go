// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package overlay projects geo-referenced targets onto the screen with the
// render transform.
package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/projection"
)

// ErrLocationUnavailable is returned while there is no device location fix.
// It is expected right after start-up and is not fatal.
var ErrLocationUnavailable = errors.New("location unavailable")

// WorldFrame selects the axes that east-north-up offsets are expressed in
// before the render transform is applied.
type WorldFrame int

const (
	// FrameHorizon uses x = east, y = up, z = -north: with the identity
	// rotation the camera looks north along the horizon.
	FrameHorizon WorldFrame = iota
	// FrameENU uses x = east, y = north, z = up, the reference frame of
	// rotation-vector sensors: the identity rotation is a device lying flat,
	// screen up, top edge pointing north.
	FrameENU
)

// ParseWorldFrame accepts "horizon" or "enu".
func ParseWorldFrame(s string) (WorldFrame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "horizon":
		return FrameHorizon, nil
	case "enu":
		return FrameENU, nil
	}
	return FrameHorizon, fmt.Errorf("unknown world frame %q (want horizon or enu)", s)
}

func (f WorldFrame) String() string {
	if f == FrameENU {
		return "enu"
	}
	return "horizon"
}

func (f WorldFrame) point(enu r3.Vector) mgl64.Vec4 {
	if f == FrameENU {
		return mgl64.Vec4{enu.X, enu.Y, enu.Z, 1}
	}
	return mgl64.Vec4{enu.X, enu.Z, -enu.Y, 1}
}

// Target is a labelled position to draw on the overlay.
type Target struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Location geodesy.GeoPoint `json:"location"`
}

// ScreenPoint is where a target lands on the screen, in pixels from the
// top-left corner.
type ScreenPoint struct {
	// Index is the position of the target in the projected slice.
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Depth    float64 `json:"depth"`
	Distance float64 `json:"distance_m"`
	Bearing  float64 `json:"bearing_deg"`
	OnScreen bool    `json:"on_screen"`
}

type options struct {
	frame WorldFrame
	model geodesy.Model
}

// Option configures Project.
type Option func(*options)

// WithWorldFrame sets the world frame; the default is FrameHorizon.
func WithWorldFrame(f WorldFrame) Option {
	return func(o *options) {
		o.frame = f
	}
}

// WithGeodesy sets how offsets are computed; the default is
// geodesy.TangentPlane.
func WithGeodesy(m geodesy.Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// Project returns the screen position of every target that is in front of
// the camera and within the clip range, in input order.
//
// Without a device location it returns ErrLocationUnavailable and no points.
// Targets with invalid coordinates are skipped.
func Project(
	transform mgl64.Mat4,
	viewport projection.Viewport,
	device *geodesy.GeoPoint,
	targets []Target,
	opts ...Option,
) ([]ScreenPoint, error) {
	if device == nil {
		return nil, ErrLocationUnavailable
	}
	if err := device.Validate(); err != nil {
		return nil, errors.Wrap(err, "device location")
	}
	if !viewport.Valid() {
		return nil, errors.Wrapf(projection.ErrDegenerateViewport, "viewport %s", viewport)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	points := make([]ScreenPoint, 0, len(targets))
	for i, target := range targets {
		if target.Location.Validate() != nil {
			continue
		}
		clip := transform.Mul4x1(o.frame.point(o.model.Offset(*device, target.Location)))

		w := clip.W()
		if !(w > 0) {
			continue // behind the camera, or NaN
		}
		ndc := clip.Vec3().Mul(1 / w)
		if !finite(ndc) || ndc.Z() < -1 || ndc.Z() > 1 {
			continue // outside the near/far planes
		}

		points = append(points, ScreenPoint{
			Index:    i,
			ID:       target.ID,
			Name:     target.Name,
			X:        (ndc.X() + 1) / 2 * float64(viewport.Width),
			Y:        (1 - ndc.Y()) / 2 * float64(viewport.Height),
			Depth:    ndc.Z(),
			Distance: geodesy.Distance(*device, target.Location),
			Bearing:  geodesy.Bearing(*device, target.Location),
			OnScreen: ndc.X() >= -1 && ndc.X() <= 1 && ndc.Y() >= -1 && ndc.Y() <= 1,
		})
	}
	return points, nil
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
