package octree

import (
	"github.com/aukilabs/spatial/geometry"
)

const (
	sphereQuery  = "sphere"
	cubeQuery    = "cube"
	frustumQuery = "frustum"
)

// QuerySphere appends to dst the objects whose sphere intersects s.
func (t *Octree[T]) QuerySphere(s geometry.Sphere, dst []*Object[T]) []*Object[T] {
	instrumentQuery(t.name, sphereQuery)
	if s.IsDegenerate() {
		return dst
	}
	return query(t.root, sphereVolume(s), dst)
}

// QueryCube appends to dst the objects whose sphere intersects c.
func (t *Octree[T]) QueryCube(c geometry.Cube, dst []*Object[T]) []*Object[T] {
	instrumentQuery(t.name, cubeQuery)
	if c.IsDegenerate() {
		return dst
	}
	return query(t.root, cubeVolume(c), dst)
}

// QueryFrustum appends to dst the objects whose sphere intersects f.
func (t *Octree[T]) QueryFrustum(f geometry.Frustum, dst []*Object[T]) []*Object[T] {
	instrumentQuery(t.name, frustumQuery)
	if f.IsDegenerate() {
		return dst
	}
	return query(t.root, frustumVolume(f), dst)
}

type volume interface {
	intersectsCube(geometry.Cube) bool
	intersectsSphere(geometry.Sphere) bool
}

type sphereVolume geometry.Sphere

func (v sphereVolume) intersectsCube(c geometry.Cube) bool {
	return geometry.CubeIntersectsSphere(c, geometry.Sphere(v))
}

func (v sphereVolume) intersectsSphere(s geometry.Sphere) bool {
	return geometry.SphereIntersectsSphere(geometry.Sphere(v), s)
}

type cubeVolume geometry.Cube

func (v cubeVolume) intersectsCube(c geometry.Cube) bool {
	return geometry.CubeIntersectsCube(geometry.Cube(v), c)
}

func (v cubeVolume) intersectsSphere(s geometry.Sphere) bool {
	return geometry.CubeIntersectsSphere(geometry.Cube(v), s)
}

type frustumVolume geometry.Frustum

func (v frustumVolume) intersectsCube(c geometry.Cube) bool {
	return geometry.CubeIntersectsFrustum(c, geometry.Frustum(v))
}

func (v frustumVolume) intersectsSphere(s geometry.Sphere) bool {
	return geometry.SphereIntersectsFrustum(s, geometry.Frustum(v))
}

// query tests the root objects regardless of the root cube since objects
// outside of it are stored there.
func query[T any, V volume](root *Node[T], v V, dst []*Object[T]) []*Object[T] {
	dst = appendIntersecting(root, v, dst)
	if root.children == nil || !v.intersectsCube(root.cube) {
		return dst
	}

	for _, c := range root.children {
		dst = queryNode(c, v, dst)
	}
	return dst
}

func queryNode[T any, V volume](n *Node[T], v V, dst []*Object[T]) []*Object[T] {
	if !v.intersectsCube(n.cube) {
		return dst
	}

	dst = appendIntersecting(n, v, dst)
	if n.children == nil {
		return dst
	}

	for _, c := range n.children {
		dst = queryNode(c, v, dst)
	}
	return dst
}

func appendIntersecting[T any, V volume](n *Node[T], v V, dst []*Object[T]) []*Object[T] {
	for _, o := range n.objects {
		if v.intersectsSphere(o.sphere) {
			dst = append(dst, o)
		}
	}
	return dst
}
