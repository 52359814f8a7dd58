// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package projection builds the perspective projection used by the overlay
// and composes it with the device rotation into the render transform.
//
// All matrices are mgl64.Mat4 values, which are column-major like OpenGL.
package projection

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Clip planes used by the overlay camera.
const (
	DefaultNear = 0.5
	DefaultFar  = 10000.0
)

var (
	// ErrDegenerateViewport is returned when a viewport side is zero, so no
	// aspect ratio can be derived from it.
	ErrDegenerateViewport = errors.New("degenerate viewport")

	// ErrInvalidClipPlanes is returned for near/far planes that cannot form
	// a perspective frustum.
	ErrInvalidClipPlanes = errors.New("invalid clip planes")
)

// Viewport is the size of the drawing surface in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// AspectRatio returns the smaller side divided by the larger one, a value in
// (0, 1]. Portrait and landscape viewports of the same size give the same
// ratio.
func (v Viewport) AspectRatio() (float64, error) {
	if !v.Valid() {
		return 0, errors.Wrapf(ErrDegenerateViewport, "viewport %s", v)
	}
	short, long := v.Width, v.Height
	if short > long {
		short, long = long, short
	}
	r := float64(short) / float64(long)
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, errors.Wrapf(ErrDegenerateViewport, "viewport %s gives ratio %v", v, r)
	}
	return r, nil
}

// Frustum holds the six planes of a perspective view volume.
type Frustum struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}

// Matrix returns the OpenGL frustum matrix for f.
func (f Frustum) Matrix() mgl64.Mat4 {
	return mgl64.Frustum(f.Left, f.Right, f.Bottom, f.Top, f.Near, f.Far)
}

// Projection is a frustum together with its matrix. It only changes when the
// viewport changes.
type Projection struct {
	Viewport Viewport
	Frustum  Frustum
	Matrix   mgl64.Mat4
}

// Build returns the projection for viewport with the given clip planes. The
// horizontal half-extent of the near plane is the viewport aspect ratio and
// the vertical half-extent is 1.
func Build(viewport Viewport, zNear, zFar float64) (Projection, error) {
	if err := checkClipPlanes(zNear, zFar); err != nil {
		return Projection{}, err
	}
	r, err := viewport.AspectRatio()
	if err != nil {
		return Projection{}, err
	}
	f := Frustum{
		Left:   -r,
		Right:  r,
		Bottom: -1,
		Top:    1,
		Near:   zNear,
		Far:    zFar,
	}
	return Projection{Viewport: viewport, Frustum: f, Matrix: f.Matrix()}, nil
}

func checkClipPlanes(zNear, zFar float64) error {
	for _, v := range []float64{zNear, zFar} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidClipPlanes, "near=%v far=%v", zNear, zFar)
		}
	}
	if zNear <= 0 || zFar <= zNear {
		return errors.Wrapf(ErrInvalidClipPlanes, "near=%v far=%v", zNear, zFar)
	}
	return nil
}

// ExtractFrustum recovers the frustum planes from a matrix produced by
// Frustum.Matrix.
func ExtractFrustum(m mgl64.Mat4) Frustum {
	// Column-major layout:
	//   m[0]  = 2n/(r-l)      m[8]  = (r+l)/(r-l)
	//   m[5]  = 2n/(t-b)      m[9]  = (t+b)/(t-b)
	//   m[10] = -(f+n)/(f-n)  m[14] = -2fn/(f-n)
	c, d := m[10], m[14]
	n := d / (c - 1)
	f := d / (c + 1)

	width := 2 * n / m[0]
	height := 2 * n / m[5]
	sumX := m[8] * width
	sumY := m[9] * height

	return Frustum{
		Left:   (sumX - width) / 2,
		Right:  (sumX + width) / 2,
		Bottom: (sumY - height) / 2,
		Top:    (sumY + height) / 2,
		Near:   n,
		Far:    f,
	}
}
