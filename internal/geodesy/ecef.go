// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geodesy

import (
	"math"

	"github.com/golang/geo/r3"
)

// WGS84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84B  = 6356752.314245
	wgs84E2 = 1 - (wgs84B*wgs84B)/(wgs84A*wgs84A)
)

// ToECEF converts a geodetic position at altitude alt to earth-centred,
// earth-fixed coordinates in meters.
func ToECEF(p GeoPoint, alt float64) r3.Vector {
	lat := p.Latitude * math.Pi / 180
	lon := p.Longitude * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	return r3.Vector{
		X: (n + alt) * cosLat * cosLon,
		Y: (n + alt) * cosLat * sinLon,
		Z: (n*(1-wgs84E2) + alt) * sinLat,
	}
}

// ECEFToENU rotates the ECEF difference point-originECEF into the
// east-north-up frame at origin.
func ECEFToENU(origin GeoPoint, originECEF, point r3.Vector) r3.Vector {
	lat := origin.Latitude * math.Pi / 180
	lon := origin.Longitude * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	d := point.Sub(originECEF)
	return r3.Vector{
		X: -sinLon*d.X + cosLon*d.Y,
		Y: -sinLat*cosLon*d.X - sinLat*sinLon*d.Y + cosLat*d.Z,
		Z: cosLat*cosLon*d.X + cosLat*sinLon*d.Y + sinLat*d.Z,
	}
}

// EllipsoidOffset is the exact east-north-up offset of target from origin on
// the WGS84 ellipsoid. Unlike TangentPlaneOffset the up component includes
// the drop of the horizon with distance.
func EllipsoidOffset(origin, target GeoPoint) r3.Vector {
	h0, h1 := heights(origin, target)
	o := ToECEF(origin, h0)
	return ECEFToENU(origin, o, ToECEF(target, h1))
}
