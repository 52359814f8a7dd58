// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package projection

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestAspectRatio(t *testing.T) {
	for _, tc := range []struct {
		vp    Viewport
		ratio float64
	}{
		{Viewport{1080, 1920}, 0.5625},
		{Viewport{1920, 1080}, 0.5625},
		{Viewport{800, 800}, 1},
		{Viewport{1, 1000}, 0.001},
	} {
		r, err := tc.vp.AspectRatio()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r, test.ShouldAlmostEqual, tc.ratio)
		test.That(t, r, test.ShouldBeGreaterThan, 0)
		test.That(t, r, test.ShouldBeLessThanOrEqualTo, 1)
	}
}

func TestBuildBounds(t *testing.T) {
	for _, vp := range []Viewport{{1080, 1920}, {1920, 1080}, {640, 480}, {1, 1}, {3, 4000}} {
		p, err := Build(vp, DefaultNear, DefaultFar)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.Viewport, test.ShouldResemble, vp)

		f := p.Frustum
		test.That(t, f.Left, test.ShouldEqual, -f.Right)
		test.That(t, f.Bottom, test.ShouldEqual, -1.0)
		test.That(t, f.Top, test.ShouldEqual, 1.0)
		test.That(t, f.Near, test.ShouldEqual, DefaultNear)
		test.That(t, f.Far, test.ShouldEqual, DefaultFar)

		got := ExtractFrustum(p.Matrix)
		test.That(t, got.Left, test.ShouldAlmostEqual, -got.Right, 1e-9)
		test.That(t, got.Right, test.ShouldAlmostEqual, f.Right, 1e-9)
		test.That(t, got.Bottom, test.ShouldAlmostEqual, -1.0, 1e-9)
		test.That(t, got.Top, test.ShouldAlmostEqual, 1.0, 1e-9)
		test.That(t, got.Near, test.ShouldAlmostEqual, DefaultNear, 1e-9)
		test.That(t, got.Far, test.ShouldAlmostEqual, DefaultFar, 1e-6)
	}
}

func TestBuildMatrixLayout(t *testing.T) {
	p, err := Build(Viewport{1080, 1920}, DefaultNear, DefaultFar)
	test.That(t, err, test.ShouldBeNil)

	m := p.Matrix
	test.That(t, m[0], test.ShouldAlmostEqual, 2*DefaultNear/(2*0.5625))
	test.That(t, m[5], test.ShouldAlmostEqual, DefaultNear)
	test.That(t, m[10], test.ShouldAlmostEqual, -(DefaultFar+DefaultNear)/(DefaultFar-DefaultNear))
	// w' = -z lives in the fourth row of the third column.
	test.That(t, m[11], test.ShouldEqual, -1.0)
	test.That(t, m[14], test.ShouldAlmostEqual, -2*DefaultFar*DefaultNear/(DefaultFar-DefaultNear))
	test.That(t, m[15], test.ShouldEqual, 0.0)
}

func TestBuildDegenerateViewport(t *testing.T) {
	for _, vp := range []Viewport{{0, 1920}, {1080, 0}, {0, 0}, {-5, 100}} {
		_, err := Build(vp, DefaultNear, DefaultFar)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrDegenerateViewport), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, vp.String())
	}
}

func TestBuildInvalidClipPlanes(t *testing.T) {
	vp := Viewport{1080, 1920}
	for _, planes := range [][2]float64{
		{0, 100},
		{-1, 100},
		{10, 10},
		{10, 5},
		{math.NaN(), 100},
		{0.5, math.Inf(1)},
	} {
		_, err := Build(vp, planes[0], planes[1])
		test.That(t, errors.Is(err, ErrInvalidClipPlanes), test.ShouldBeTrue)
	}
}

func TestComposeOrder(t *testing.T) {
	p, err := Build(Viewport{1080, 1920}, DefaultNear, DefaultFar)
	test.That(t, err, test.ShouldBeNil)
	r := mgl64.HomogRotate3DX(math.Pi / 3).Mul4(mgl64.HomogRotate3DZ(0.4))

	got := Compose(p, r)
	test.That(t, got.ApproxEqualThreshold(p.Matrix.Mul4(r), 1e-12), test.ShouldBeTrue)
	test.That(t, got.ApproxEqualThreshold(r.Mul4(p.Matrix), 1e-6), test.ShouldBeFalse)

	// A point straight ahead of the rotated camera must land on the axis.
	ahead := r.Inv().Mul4x1(mgl64.Vec4{0, 0, -100, 1})
	clip := got.Mul4x1(ahead)
	test.That(t, clip.X()/clip.W(), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, clip.Y()/clip.W(), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, clip.W(), test.ShouldAlmostEqual, 100, 1e-9)
}

func TestComposeIdentityRotation(t *testing.T) {
	p, err := Build(Viewport{640, 480}, DefaultNear, DefaultFar)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, Compose(p, mgl64.Ident4()), test.ShouldResemble, p.Matrix)
}
