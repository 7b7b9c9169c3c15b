package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a 3D sphere.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func NewSphere(x, y, z, radius float64) Sphere {
	return Sphere{
		Center: mgl64.Vec3{x, y, z},
		Radius: radius,
	}
}

func (s Sphere) IsDegenerate() bool {
	return s.Radius <= 0 || isInvalid(s.Radius, s.Center[0], s.Center[1], s.Center[2])
}

// Cube is an axis aligned cube described by its center and half of its edge
// length.
type Cube struct {
	Center   mgl64.Vec3
	HalfEdge float64
}

func NewCube(x, y, z, halfEdge float64) Cube {
	return Cube{
		Center:   mgl64.Vec3{x, y, z},
		HalfEdge: halfEdge,
	}
}

func (c Cube) Min() mgl64.Vec3 {
	return c.Center.Sub(mgl64.Vec3{c.HalfEdge, c.HalfEdge, c.HalfEdge})
}

func (c Cube) Max() mgl64.Vec3 {
	return c.Center.Add(mgl64.Vec3{c.HalfEdge, c.HalfEdge, c.HalfEdge})
}

func (c Cube) Edge() float64 {
	return c.HalfEdge * 2
}

func (c Cube) IsDegenerate() bool {
	return c.HalfEdge <= 0 || isInvalid(c.HalfEdge, c.Center[0], c.Center[1], c.Center[2])
}

// Circle is a 2D circle.
type Circle struct {
	Center mgl64.Vec2
	Radius float64
}

func NewCircle(x, y, radius float64) Circle {
	return Circle{
		Center: mgl64.Vec2{x, y},
		Radius: radius,
	}
}

func (c Circle) IsDegenerate() bool {
	return c.Radius <= 0 || isInvalid(c.Radius, c.Center[0], c.Center[1])
}

// Rectangle is a 2D axis aligned rectangle. X and Y are the coordinates of its
// lowest corner.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRectangle(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func (r Rectangle) Left() float64 {
	return r.X
}

func (r Rectangle) Right() float64 {
	return r.X + r.Width
}

func (r Rectangle) Top() float64 {
	return r.Y
}

func (r Rectangle) Bottom() float64 {
	return r.Y + r.Height
}

func (r Rectangle) Center() mgl64.Vec2 {
	return mgl64.Vec2{r.X + r.Width*0.5, r.Y + r.Height*0.5}
}

func (r Rectangle) IsDegenerate() bool {
	return r.Width <= 0 || r.Height <= 0 || isInvalid(r.X, r.Y, r.Width, r.Height)
}

// Ray is a half-line starting at Origin.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At returns the point of the ray at the given parameter.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}
