package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SphereIntersectsSphere reports whether the spheres touch or overlap.
func SphereIntersectsSphere(a, b Sphere) bool {
	d := a.Center.Sub(b.Center)
	r := a.Radius + b.Radius
	return d.Dot(d) <= r*r
}

// SphereContainsSphere reports whether b lies entirely within a.
func SphereContainsSphere(a, b Sphere) bool {
	r := a.Radius - b.Radius
	if r < 0 {
		return false
	}

	d := a.Center.Sub(b.Center)
	return d.Dot(d) <= r*r
}

// SphereInFrontOfPlane reports whether the sphere is at least partially on
// the positive side of the plane.
func SphereInFrontOfPlane(s Sphere, p Plane) bool {
	return p.SignedDistance(s.Center)+s.Radius >= 0
}

// SphereIntersectsFrustum reports whether the sphere is inside or intersects
// the frustum.
func SphereIntersectsFrustum(s Sphere, f Frustum) bool {
	for _, p := range f.Planes {
		if !SphereInFrontOfPlane(s, p) {
			return false
		}
	}
	return true
}

// CubeInFrontOfPlane reports whether the cube vertex furthest along the plane
// normal is on or in front of the plane.
func CubeInFrontOfPlane(c Cube, p Plane) bool {
	var vertex mgl64.Vec3
	for i := 0; i < 3; i++ {
		if p.Normal[i] >= 0 {
			vertex[i] = c.Center[i] + c.HalfEdge
		} else {
			vertex[i] = c.Center[i] - c.HalfEdge
		}
	}
	return p.SignedDistance(vertex) >= 0
}

// CubeIntersectsFrustum reports whether the cube is inside or intersects the
// frustum. Cubes close to a frustum corner may be reported as intersecting
// while being outside.
func CubeIntersectsFrustum(c Cube, f Frustum) bool {
	for _, p := range f.Planes {
		if !CubeInFrontOfPlane(c, p) {
			return false
		}
	}
	return true
}

// CubeIntersectsSphere reports whether the cube and the sphere touch or
// overlap.
func CubeIntersectsSphere(c Cube, s Sphere) bool {
	min := c.Min()
	max := c.Max()

	var d2 float64
	for i := 0; i < 3; i++ {
		d := s.Center[i] - clamp(s.Center[i], min[i], max[i])
		d2 += d * d
	}
	return d2 <= s.Radius*s.Radius
}

// CubeContainsSphere reports whether the sphere lies entirely within the cube.
func CubeContainsSphere(c Cube, s Sphere) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(s.Center[i]-c.Center[i])+s.Radius > c.HalfEdge {
			return false
		}
	}
	return true
}

// CubeIntersectsCube reports whether the cubes touch or overlap.
func CubeIntersectsCube(a, b Cube) bool {
	h := a.HalfEdge + b.HalfEdge
	for i := 0; i < 3; i++ {
		if math.Abs(a.Center[i]-b.Center[i]) > h {
			return false
		}
	}
	return true
}

func PointInCube(p mgl64.Vec3, c Cube) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(p[i]-c.Center[i]) > c.HalfEdge {
			return false
		}
	}
	return true
}

func PointInRectangle(p mgl64.Vec2, r Rectangle) bool {
	return p[0] >= r.Left() && p[0] <= r.Right() &&
		p[1] >= r.Top() && p[1] <= r.Bottom()
}

func PointInCircle(p mgl64.Vec2, c Circle) bool {
	d := p.Sub(c.Center)
	return d.Dot(d) <= c.Radius*c.Radius
}

// RectangleContainsCircle reports whether the circle lies entirely within the
// rectangle.
func RectangleContainsCircle(r Rectangle, c Circle) bool {
	return c.Center[0]-c.Radius >= r.Left() &&
		c.Center[0]+c.Radius <= r.Right() &&
		c.Center[1]-c.Radius >= r.Top() &&
		c.Center[1]+c.Radius <= r.Bottom()
}

// RectangleIntersectsRectangle reports whether the rectangles touch or
// overlap.
func RectangleIntersectsRectangle(a, b Rectangle) bool {
	return a.Left() <= b.Right() && a.Right() >= b.Left() &&
		a.Top() <= b.Bottom() && a.Bottom() >= b.Top()
}

// CircleIntersectsCircle reports whether the circles touch or overlap.
func CircleIntersectsCircle(a, b Circle) bool {
	d := a.Center.Sub(b.Center)
	r := a.Radius + b.Radius
	return d.Dot(d) <= r*r
}

// CircleIntersectsRectangle reports whether the circle and the rectangle
// touch or overlap.
func CircleIntersectsRectangle(c Circle, r Rectangle) bool {
	dx := c.Center[0] - clamp(c.Center[0], r.Left(), r.Right())
	dy := c.Center[1] - clamp(c.Center[1], r.Top(), r.Bottom())
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// PlaneIntersectsRay returns the point where the ray crosses the plane. It
// returns false when the ray is parallel to the plane or points away from it,
// in which case the returned point must not be used.
func PlaneIntersectsRay(p Plane, r Ray) (mgl64.Vec3, bool) {
	denominator := p.Normal.Dot(r.Direction)
	if EqualWithEpsilon(denominator, 0, Epsilon) {
		return mgl64.Vec3{}, false
	}

	t := (p.Distance - p.Normal.Dot(r.Origin)) / denominator
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}
