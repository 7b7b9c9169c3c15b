package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestNewFrustum(t *testing.T) {
	frustum := NewFrustum(mgl64.Perspective(mgl64.DegToRad(90), 1, 10, 100))

	t.Run("planes are normalized", func(t *testing.T) {
		for _, p := range frustum.Planes {
			require.InDelta(t, 1, p.Normal.Len(), 1e-9)
		}
	})

	t.Run("near and far planes", func(t *testing.T) {
		near := frustum.Planes[FrustumNear]
		require.True(t, near.Normal.ApproxEqualThreshold(mgl64.Vec3{0, 0, -1}, 1e-9))
		require.InDelta(t, 10, near.Distance, 1e-9)

		far := frustum.Planes[FrustumFar]
		require.True(t, far.Normal.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, 1e-9))
		require.InDelta(t, -100, far.Distance, 1e-9)
	})

	t.Run("side planes", func(t *testing.T) {
		s := math.Sqrt2 / 2

		left := frustum.Planes[FrustumLeft]
		require.True(t, left.Normal.ApproxEqualThreshold(mgl64.Vec3{s, 0, -s}, 1e-9))
		require.InDelta(t, 0, left.Distance, 1e-9)

		right := frustum.Planes[FrustumRight]
		require.True(t, right.Normal.ApproxEqualThreshold(mgl64.Vec3{-s, 0, -s}, 1e-9))

		bottom := frustum.Planes[FrustumBottom]
		require.True(t, bottom.Normal.ApproxEqualThreshold(mgl64.Vec3{0, s, -s}, 1e-9))

		top := frustum.Planes[FrustumTop]
		require.True(t, top.Normal.ApproxEqualThreshold(mgl64.Vec3{0, -s, -s}, 1e-9))
	})
}

func TestFrustumContainsPoint(t *testing.T) {
	frustum := NewFrustum(mgl64.Perspective(mgl64.DegToRad(90), 1, 10, 100))

	require.True(t, frustum.ContainsPoint(mgl64.Vec3{0, 0, -50}))
	require.True(t, frustum.ContainsPoint(mgl64.Vec3{40, 40, -50}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{0, 0, 0}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{0, 0, -101}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{60, 0, -50}))
}

func TestNewPerspectiveFrustum(t *testing.T) {
	frustum := NewPerspectiveFrustum(
		90, 1, 10, 100,
		mgl64.Vec3{100, 0, 0},
		mgl64.Vec3{200, 0, 0},
		mgl64.Vec3{0, 1, 0},
	)

	require.True(t, frustum.ContainsPoint(mgl64.Vec3{150, 0, 0}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{50, 0, 0}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{105, 0, 0}))
	require.False(t, frustum.ContainsPoint(mgl64.Vec3{250, 0, 0}))

	require.True(t, SphereIntersectsFrustum(NewSphere(150, 0, 0, 1), frustum))
	require.False(t, SphereIntersectsFrustum(NewSphere(0, 0, 0, 1), frustum))
	require.True(t, CubeIntersectsFrustum(NewCube(150, 10, 10, 5), frustum))
}

func TestPlane(t *testing.T) {
	t.Run("new plane normalizes", func(t *testing.T) {
		p := NewPlane(mgl64.Vec3{0, 2, 0}, 4)
		require.True(t, p.Normal.ApproxEqual(mgl64.Vec3{0, 1, 0}))
		require.InDelta(t, 2, p.Distance, 1e-9)
	})

	t.Run("plane from point", func(t *testing.T) {
		p := NewPlaneFromPoint(mgl64.Vec3{0, 0, 3}, mgl64.Vec3{7, 7, 5})
		require.InDelta(t, 5, p.Distance, 1e-9)
		require.InDelta(t, 0, p.SignedDistance(mgl64.Vec3{-3, 2, 5}), 1e-9)
		require.InDelta(t, 1, p.SignedDistance(mgl64.Vec3{0, 0, 6}), 1e-9)
		require.InDelta(t, -1, p.SignedDistance(mgl64.Vec3{0, 0, 4}), 1e-9)
	})

	t.Run("zero normal is left untouched", func(t *testing.T) {
		p := Plane{Distance: 3}.Normalized()
		require.Equal(t, Plane{Distance: 3}, p)
	})
}
