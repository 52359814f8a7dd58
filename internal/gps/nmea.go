// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"
)

// ErrNotNMEA is returned for lines that do not start with '$'.
var ErrNotNMEA = errors.New("not an NMEA sentence")

// Accumulator merges NMEA sentences into fixes. RMC sentences carry the
// position and complete a fix; GGA sentences add altitude and quality.
type Accumulator struct {
	current Fix
}

// Add parses one line. It returns the fix and true when the line was an RMC
// sentence. Lines of other types update the pending fix and return false.
func (a *Accumulator) Add(line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, ErrNotNMEA
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, errors.Wrapf(err, "parse %q", line)
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		a.current.Satellites = m.NumSatellites
		a.current.HDOP = m.HDOP
		if m.FixQuality == nmea.Invalid {
			a.current.Altitude = 0
			a.current.HasAltitude = false
		} else {
			a.current.Altitude = m.Altitude
			a.current.HasAltitude = true
		}
		return Fix{}, false, nil

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		a.current.Time = fixTime(m.Date, m.Time)
		a.current.Latitude = m.Latitude
		a.current.Longitude = m.Longitude
		a.current.SpeedKnots = m.Speed
		a.current.CourseDeg = m.Course
		a.current.Validity = m.Validity
		return a.current, true, nil
	}
	return Fix{}, false, nil
}

// fixTime combines the RMC date and time in UTC. Two-digit years are taken
// to be in this century.
func fixTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
