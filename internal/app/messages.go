// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"strings"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/overlay"
)

// DroneMessage is the payload of a drone position topic.
type DroneMessage struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Altitude  *float64 `json:"alt,omitempty"`
}

// Target converts the message. The id falls back to the last topic level and
// the name to the id.
func (m DroneMessage) Target(topic string) overlay.Target {
	id := m.ID
	if id == "" {
		id = topic[strings.LastIndex(topic, "/")+1:]
	}
	name := m.Name
	if name == "" {
		name = id
	}
	loc := geodesy.GeoPoint{Latitude: m.Latitude, Longitude: m.Longitude}
	if m.Altitude != nil {
		loc.Altitude = *m.Altitude
		loc.HasAltitude = true
	}
	return overlay.Target{ID: id, Name: name, Location: loc}
}

// clientMessage is what browsers send over the overlay websocket.
type clientMessage struct {
	Action   string `json:"action"` // "viewport", "rotation"
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Rotation *int   `json:"rotation,omitempty"`
}

// serverError is sent back to a websocket client whose message was rejected.
type serverError struct {
	Type    string `json:"type"` // always "error"
	Message string `json:"message"`
}
