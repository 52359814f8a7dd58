// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// ErrInvalidOrientationSample is returned for rotation samples that cannot be
// turned into a rotation matrix.
var ErrInvalidOrientationSample = errors.New("invalid orientation sample")

// headingAccuracyUnknown is what sensors report in the fifth element when
// they have no heading accuracy estimate.
const headingAccuracyUnknown = -1

// RotationSample is a raw rotation-vector reading:
//
//	[0] x*sin(θ/2)
//	[1] y*sin(θ/2)
//	[2] z*sin(θ/2)
//	[3] cos(θ/2)
//	[4] estimated heading accuracy in radians (optional)
type RotationSample struct {
	Values []float64 `json:"values"`
	Time   time.Time `json:"time,omitempty"`
}

// HeadingAccuracy returns the heading accuracy in radians, if the sample
// carries one.
func (s RotationSample) HeadingAccuracy() (float64, bool) {
	if len(s.Values) < 5 || s.Values[4] == headingAccuracyUnknown {
		return 0, false
	}
	return s.Values[4], true
}

// Validate checks the element count and that every element is finite.
func (s RotationSample) Validate() error {
	if n := len(s.Values); n != 4 && n != 5 {
		return errors.Wrapf(ErrInvalidOrientationSample, "got %d values, want 4 or 5", n)
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidOrientationSample, "value %d is %v", i, v)
		}
	}
	return nil
}

// Quaternion returns the unit quaternion encoded by the sample.
func (s RotationSample) Quaternion() (quat.Number, error) {
	if err := s.Validate(); err != nil {
		return quat.Number{}, err
	}
	q := quat.Number{Real: s.Values[3], Imag: s.Values[0], Jmag: s.Values[1], Kmag: s.Values[2]}
	norm := quat.Abs(q)
	if norm < 1e-9 {
		return quat.Number{}, errors.Wrapf(ErrInvalidOrientationSample, "zero-length rotation vector %v", s.Values)
	}
	return quat.Scale(1/norm, q), nil
}

// sampleFromQuat encodes q as a four element rotation vector with a
// non-negative scalar part.
func sampleFromQuat(q mgl64.Quat) RotationSample {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	return RotationSample{Values: []float64{q.V[0], q.V[1], q.V[2], q.W}}
}
