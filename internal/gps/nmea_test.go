// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

const (
	rmcValid   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcVoid    = "$GPRMC,123520,V,4807.038,N,01131.000,E,000.0,000.0,230394,003.1,W*7B"
	ggaFix     = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaNoFix   = "$GPGGA,123520,4807.038,N,01131.000,E,0,00,99.9,0.0,M,0.0,M,,*4F"
	gsa        = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39"
	badSumLine = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00"
)

func TestAccumulatorRMC(t *testing.T) {
	var a Accumulator
	fix, ok, err := a.Add(rmcValid + "\r\n")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Valid(), test.ShouldBeTrue)
	test.That(t, fix.Latitude, test.ShouldAlmostEqual, 48.1173, 1e-6)
	test.That(t, fix.Longitude, test.ShouldAlmostEqual, 11.516667, 1e-6)
	test.That(t, fix.SpeedKnots, test.ShouldAlmostEqual, 22.4)
	test.That(t, fix.CourseDeg, test.ShouldAlmostEqual, 84.4)
	test.That(t, fix.HasAltitude, test.ShouldBeFalse)
	test.That(t, fix.Time.Equal(time.Date(2094, 3, 23, 12, 35, 19, 0, time.UTC)), test.ShouldBeTrue)

	p := fix.GeoPoint()
	test.That(t, p.Validate(), test.ShouldBeNil)
	test.That(t, p.HasAltitude, test.ShouldBeFalse)
}

func TestAccumulatorAltitudeFromGGA(t *testing.T) {
	var a Accumulator
	_, ok, err := a.Add(ggaFix)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	fix, ok, err := a.Add(rmcValid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.HasAltitude, test.ShouldBeTrue)
	test.That(t, fix.Altitude, test.ShouldAlmostEqual, 545.4)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(8))
	test.That(t, fix.HDOP, test.ShouldAlmostEqual, 0.9)
	test.That(t, fix.GeoPoint().Altitude, test.ShouldAlmostEqual, 545.4)

	// Losing the fix drops the altitude.
	_, _, err = a.Add(ggaNoFix)
	test.That(t, err, test.ShouldBeNil)
	fix, ok, err = a.Add(rmcVoid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Valid(), test.ShouldBeFalse)
	test.That(t, fix.HasAltitude, test.ShouldBeFalse)
}

func TestAccumulatorIgnoresOtherSentences(t *testing.T) {
	var a Accumulator
	_, ok, err := a.Add(gsa)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok, err = a.Add("garbage")
	test.That(t, errors.Is(err, ErrNotNMEA), test.ShouldBeTrue)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok, err = a.Add(badSumLine)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}
