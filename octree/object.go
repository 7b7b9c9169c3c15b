package octree

import (
	"github.com/aukilabs/spatial/geometry"
)

// Object is an item tracked by an octree. Its payload is owned by the caller.
type Object[T any] struct {
	Data T

	sphere geometry.Sphere
	node   *Node[T]
	index  int
}

// NewObject creates an object bounded by the given sphere.
func NewObject[T any](s geometry.Sphere, data T) *Object[T] {
	return &Object[T]{
		Data:   data,
		sphere: s,
		index:  -1,
	}
}

func (o *Object[T]) Sphere() geometry.Sphere {
	return o.sphere
}

// Node returns the node that stores the object, nil when the object is not
// inserted.
func (o *Object[T]) Node() *Node[T] {
	return o.node
}
