// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns device orientation readings into the rotation
// used by the overlay.
package orientation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is an orientation as Euler angles in degrees, applied as yaw about Z,
// then pitch about Y, then roll about X (all right-handed, counter-clockwise).
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time.
type Source interface {
	Next() (Pose, error)
}

// Quat returns the device-to-world rotation of p.
func (p Pose) Quat() mgl64.Quat {
	yaw := mgl64.QuatRotate(mgl64.DegToRad(p.Yaw), mgl64.Vec3{0, 0, 1})
	pitch := mgl64.QuatRotate(mgl64.DegToRad(p.Pitch), mgl64.Vec3{0, 1, 0})
	roll := mgl64.QuatRotate(mgl64.DegToRad(p.Roll), mgl64.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Mul(roll)
}

// Sample encodes p as a rotation-vector sample.
func (p Pose) Sample() RotationSample {
	return sampleFromQuat(p.Quat())
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is set to 0, there is no magnetometer fusion.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  mgl64.RadToDeg(rollRad),
		Pitch: mgl64.RadToDeg(pitchRad),
		Yaw:   0,
	}
}
