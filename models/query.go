package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

type QueryType string

const (
	QueryTypeSphere    QueryType = "sphere"
	QueryTypeCube      QueryType = "cube"
	QueryTypeFrustum   QueryType = "frustum"
	QueryTypeCircle    QueryType = "circle"
	QueryTypeRectangle QueryType = "rectangle"
)

// Query selects the entities whose bounds intersect a region. Sphere, cube and
// frustum queries run against the entity volumes. Circle and rectangle queries
// run against the entity footprints on the ground, where the x and y
// coordinates of the 2D shapes map to the world x and z axes.
type Query struct {
	Type QueryType `json:"type"`

	// Center of a sphere or a cube. Circles use its x and z values.
	Center mgl64.Vec3 `json:"center"`

	// Radius of a sphere or a circle.
	Radius float64 `json:"radius,omitempty"`

	HalfEdge float64 `json:"half_edge,omitempty"`

	// Lowest corner and size of a ground rectangle.
	Min  mgl64.Vec2 `json:"min"`
	Size mgl64.Vec2 `json:"size"`

	// A frustum is described either by a column major view-projection matrix
	// or by a camera.
	Matrix *mgl64.Mat4 `json:"matrix,omitempty"`
	Camera *Camera     `json:"camera,omitempty"`
}

// Camera describes a perspective camera looking at a target.
type Camera struct {
	FOV    float64    `json:"fov"`
	Aspect float64    `json:"aspect"`
	Near   float64    `json:"near"`
	Far    float64    `json:"far"`
	Eye    mgl64.Vec3 `json:"eye"`
	Target mgl64.Vec3 `json:"target"`
	Up     mgl64.Vec3 `json:"up"`
}

func (c Camera) Validate() error {
	switch {
	case c.FOV <= 0 || c.FOV >= 180:
		return errors.New("camera field of view must be between 0 and 180 degrees").
			WithType(ErrTypeInvalidQuery).
			WithTag("fov", c.FOV)

	case c.Aspect <= 0:
		return errors.New("camera aspect ratio must be positive").
			WithType(ErrTypeInvalidQuery).
			WithTag("aspect", c.Aspect)

	case c.Near <= 0 || c.Far <= c.Near:
		return errors.New("camera clipping planes must verify 0 < near < far").
			WithType(ErrTypeInvalidQuery).
			WithTag("near", c.Near).
			WithTag("far", c.Far)

	case c.Up.Len() == 0 || c.Target.Sub(c.Eye).Len() == 0:
		return errors.New("camera orientation is undefined").
			WithType(ErrTypeInvalidQuery).
			WithTag("eye", c.Eye).
			WithTag("target", c.Target).
			WithTag("up", c.Up)
	}
	return nil
}

// Validate checks that the query is well formed. Degenerate regions are valid
// and match nothing.
func (q Query) Validate() error {
	switch q.Type {
	case QueryTypeSphere, QueryTypeCube, QueryTypeCircle, QueryTypeRectangle:
		return nil

	case QueryTypeFrustum:
		switch {
		case q.Matrix != nil && q.Camera != nil:
			return errors.New("frustum query must have either a matrix or a camera, not both").
				WithType(ErrTypeInvalidQuery)

		case q.Matrix != nil:
			return nil

		case q.Camera != nil:
			return q.Camera.Validate()

		default:
			return errors.New("frustum query must have a matrix or a camera").
				WithType(ErrTypeInvalidQuery)
		}

	default:
		return errors.New("unknown query type").
			WithType(ErrTypeInvalidQuery).
			WithTag("type", q.Type)
	}
}

func (q Query) Sphere() geometry.Sphere {
	return geometry.Sphere{Center: q.Center, Radius: q.Radius}
}

func (q Query) Cube() geometry.Cube {
	return geometry.Cube{Center: q.Center, HalfEdge: q.HalfEdge}
}

func (q Query) Circle() geometry.Circle {
	return geometry.NewCircle(q.Center.X(), q.Center.Z(), q.Radius)
}

func (q Query) Rectangle() geometry.Rectangle {
	return geometry.NewRectangle(q.Min.X(), q.Min.Y(), q.Size.X(), q.Size.Y())
}

func (q Query) Frustum() geometry.Frustum {
	if q.Matrix != nil {
		return geometry.NewFrustum(*q.Matrix)
	}

	c := q.Camera
	return geometry.NewPerspectiveFrustum(c.FOV, c.Aspect, c.Near, c.Far, c.Eye, c.Target, c.Up)
}
