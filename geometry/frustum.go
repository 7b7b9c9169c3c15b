package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum is the volume enclosed by six planes whose normals point inward.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum extracts the frustum planes from a projection or a
// projection*view matrix.
func NewFrustum(m mgl64.Mat4) Frustum {
	r0 := m.Row(0)
	r1 := m.Row(1)
	r2 := m.Row(2)
	r3 := m.Row(3)

	var f Frustum
	f.Planes[FrustumLeft] = planeFromRow(r3.Add(r0))
	f.Planes[FrustumRight] = planeFromRow(r3.Sub(r0))
	f.Planes[FrustumBottom] = planeFromRow(r3.Add(r1))
	f.Planes[FrustumTop] = planeFromRow(r3.Sub(r1))
	f.Planes[FrustumNear] = planeFromRow(r3.Add(r2))
	f.Planes[FrustumFar] = planeFromRow(r3.Sub(r2))
	return f
}

// NewPerspectiveFrustum returns the frustum of a camera at eye looking at
// center. The field of view is in degrees.
func NewPerspectiveFrustum(fov, aspect, near, far float64, eye, center, up mgl64.Vec3) Frustum {
	projection := mgl64.Perspective(mgl64.DegToRad(fov), aspect, near, far)
	view := mgl64.LookAtV(eye, center, up)
	return NewFrustum(projection.Mul4(view))
}

// ContainsPoint reports whether point is in front of all the frustum planes.
func (f Frustum) ContainsPoint(point mgl64.Vec3) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(point) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) IsDegenerate() bool {
	for _, p := range f.Planes {
		if p.Normal.Len() == 0 || isInvalid(p.Normal[0], p.Normal[1], p.Normal[2], p.Distance) {
			return true
		}
	}
	return false
}

// A row (a, b, c, d) describes the half space a*x + b*y + c*z + d >= 0.
func planeFromRow(row mgl64.Vec4) Plane {
	return Plane{
		Normal:   row.Vec3(),
		Distance: -row.W(),
	}.Normalized()
}
