package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Plane is described by its normal and its distance from the origin along
// that normal: a point p lies on the plane when Normal.Dot(p) == Distance.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane returns a plane with a normalized normal.
func NewPlane(normal mgl64.Vec3, distance float64) Plane {
	return Plane{Normal: normal, Distance: distance}.Normalized()
}

// NewPlaneFromPoint returns the plane with the given normal passing through
// point.
func NewPlaneFromPoint(normal mgl64.Vec3, point mgl64.Vec3) Plane {
	n := normal.Normalize()
	return Plane{
		Normal:   n,
		Distance: n.Dot(point),
	}
}

func (p Plane) Normalized() Plane {
	length := p.Normal.Len()
	if length == 0 {
		return p
	}

	return Plane{
		Normal:   p.Normal.Mul(1 / length),
		Distance: p.Distance / length,
	}
}

// SignedDistance returns the distance of point to the plane, positive when the
// point is in front of it.
func (p Plane) SignedDistance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Distance
}
