// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ScreenRotation is the rotation of the displayed content relative to the
// device's natural orientation.
type ScreenRotation int

// Screen rotations.
const (
	Rotation0 ScreenRotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// ParseScreenRotation converts 0, 90, 180 or 270 degrees.
func ParseScreenRotation(degrees int) (ScreenRotation, error) {
	switch degrees {
	case 0:
		return Rotation0, nil
	case 90:
		return Rotation90, nil
	case 180:
		return Rotation180, nil
	case 270:
		return Rotation270, nil
	}
	return Rotation0, fmt.Errorf("screen rotation must be 0, 90, 180 or 270, got %d", degrees)
}

// Degrees returns the rotation in degrees. Unknown values report 0.
func (r ScreenRotation) Degrees() int {
	switch r {
	case Rotation90:
		return 90
	case Rotation180:
		return 180
	case Rotation270:
		return 270
	default:
		return 0
	}
}

func (r ScreenRotation) String() string {
	return fmt.Sprintf("ROT_%d", r.Degrees())
}

// axis names one of the device axes, possibly negated.
type axis int

const (
	axisX axis = iota + 1
	axisY
	axisZ
	axisMinusX
	axisMinusY
	axisMinusZ
)

func (a axis) unit() mgl64.Vec3 {
	switch a {
	case axisX:
		return mgl64.Vec3{1, 0, 0}
	case axisY:
		return mgl64.Vec3{0, 1, 0}
	case axisZ:
		return mgl64.Vec3{0, 0, 1}
	case axisMinusX:
		return mgl64.Vec3{-1, 0, 0}
	case axisMinusY:
		return mgl64.Vec3{0, -1, 0}
	case axisMinusZ:
		return mgl64.Vec3{0, 0, -1}
	}
	panic(fmt.Sprintf("unknown axis %d", a))
}

// remap says which device axes become the new X and Y axes. The new Z axis
// is their cross product.
type remap struct {
	x, y axis
}

var remaps = map[ScreenRotation]remap{
	Rotation0:   {axisX, axisY},
	Rotation90:  {axisY, axisMinusX},
	Rotation180: {axisMinusX, axisMinusY},
	Rotation270: {axisMinusY, axisX},
}

// RemapMatrix returns the change of device axes for rotation. Its columns are
// the remapped X, Y and Z axes in device coordinates. Unknown rotations use
// the Rotation0 mapping.
func RemapMatrix(rotation ScreenRotation) mgl64.Mat4 {
	rm, ok := remaps[rotation]
	if !ok {
		rm = remaps[Rotation0]
	}
	x, y := rm.x.unit(), rm.y.unit()
	return mgl64.Mat3FromCols(x, y, x.Cross(y)).Mat4()
}

// DeviceRotation returns the device-to-world rotation encoded by sample.
func DeviceRotation(sample RotationSample) (mgl64.Mat4, error) {
	q, err := sample.Quaternion()
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Mat4(), nil
}

// Resolve turns a rotation sample into the rotation that takes world points
// into the frame of the screen as it is currently rotated. It never returns a
// partially built matrix: a malformed sample yields
// ErrInvalidOrientationSample and the zero matrix.
func Resolve(sample RotationSample, rotation ScreenRotation) (mgl64.Mat4, error) {
	deviceToWorld, err := DeviceRotation(sample)
	if err != nil {
		return mgl64.Mat4{}, errors.Wrapf(err, "resolve %s", rotation)
	}
	screenToWorld := deviceToWorld.Mul4(RemapMatrix(rotation))
	// Orthonormal, so the transpose is the inverse.
	return screenToWorld.Transpose(), nil
}
