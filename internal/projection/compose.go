// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package projection

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Compose returns the render transform p.Matrix × rotation.
//
// The rotation is applied to a world point first and the projection second.
// Swapping the operands yields a transform that no longer lines up with the
// camera image.
func Compose(p Projection, rotation mgl64.Mat4) mgl64.Mat4 {
	return p.Matrix.Mul4(rotation)
}
