// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geodesy converts between geographic positions and the local
// east-north-up frame centred on the device.
package geodesy

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
)

// GeoPoint is a WGS84 position. Altitude is in meters and only meaningful
// when HasAltitude is set.
type GeoPoint struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Altitude    float64 `json:"alt,omitempty"`
	HasAltitude bool    `json:"has_alt,omitempty"`
}

// NewGeoPoint returns a position with altitude.
func NewGeoPoint(lat, lon, alt float64) GeoPoint {
	return GeoPoint{Latitude: lat, Longitude: lon, Altitude: alt, HasAltitude: true}
}

// Validate checks that the coordinates are finite and in range.
func (p GeoPoint) Validate() error {
	for _, v := range []float64{p.Latitude, p.Longitude, p.Altitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coordinate in %s", p)
		}
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", p.Longitude)
	}
	return nil
}

func (p GeoPoint) String() string {
	if p.HasAltitude {
		return fmt.Sprintf("(%.6f, %.6f, %.1fm)", p.Latitude, p.Longitude, p.Altitude)
	}
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

func (p GeoPoint) point() *geo.Point {
	return geo.NewPoint(p.Latitude, p.Longitude)
}

// heights returns the altitudes to use for a pair of points. Unless both
// carry an altitude they are treated as level with each other.
func heights(a, b GeoPoint) (float64, float64) {
	if a.HasAltitude && b.HasAltitude {
		return a.Altitude, b.Altitude
	}
	return 0, 0
}

// Distance returns the great circle distance in meters.
func Distance(from, to GeoPoint) float64 {
	return from.point().GreatCircleDistance(to.point()) * 1000
}

// Bearing returns the initial bearing from from to to in degrees clockwise
// from north, in [0, 360).
func Bearing(from, to GeoPoint) float64 {
	b := math.Mod(from.point().BearingTo(to.point()), 360)
	if b < 0 {
		b += 360
	}
	return b
}

// TangentPlaneOffset returns the east-north-up offset of target from origin,
// placing it on the tangent plane at origin by range and bearing. Earth
// curvature is ignored, which is fine over the few kilometers a camera
// overlay covers.
func TangentPlaneOffset(origin, target GeoPoint) r3.Vector {
	d := Distance(origin, target)
	b := Bearing(origin, target) * math.Pi / 180
	h0, h1 := heights(origin, target)
	return r3.Vector{
		X: d * math.Sin(b),
		Y: d * math.Cos(b),
		Z: h1 - h0,
	}
}

// Model selects how offsets between two positions are computed.
type Model int

// Offset models.
const (
	TangentPlane Model = iota
	Ellipsoid
)

// ParseModel accepts "tangent" or "ellipsoid".
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tangent", "tangent_plane":
		return TangentPlane, nil
	case "ellipsoid", "wgs84":
		return Ellipsoid, nil
	}
	return TangentPlane, fmt.Errorf("unknown geodesy model %q (want tangent or ellipsoid)", s)
}

func (m Model) String() string {
	if m == Ellipsoid {
		return "ellipsoid"
	}
	return "tangent"
}

// Offset returns the east-north-up offset of target from origin in meters.
func (m Model) Offset(origin, target GeoPoint) r3.Vector {
	if m == Ellipsoid {
		return EllipsoidOffset(origin, target)
	}
	return TangentPlaneOffset(origin, target)
}
