// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"time"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT. It is
// the payload of the location topic.
type Fix struct {
	Time        time.Time `json:"time"`
	Latitude    float64   `json:"lat"`         // decimal degrees
	Longitude   float64   `json:"lon"`         // decimal degrees
	Altitude    float64   `json:"alt"`         // meters above mean sea level
	HasAltitude bool      `json:"has_alt"`     // false until a GGA with a fix was seen
	SpeedKnots  float64   `json:"speed_knots"` // speed over ground
	CourseDeg   float64   `json:"course_deg"`  // course over ground
	Satellites  int64     `json:"satellites"`
	HDOP        float64   `json:"hdop"`
	Validity    string    `json:"validity"` // "A" (valid) / "V" (void)
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// GeoPoint returns the fix position.
func (f Fix) GeoPoint() geodesy.GeoPoint {
	return geodesy.GeoPoint{
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Altitude:    f.Altitude,
		HasAltitude: f.HasAltitude,
	}
}
