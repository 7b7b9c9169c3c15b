package quadtree

import (
	"github.com/aukilabs/spatial/geometry"
)

// Object is an item tracked by a quadtree. Its payload is owned by the caller.
type Object[T any] struct {
	Data T

	circle geometry.Circle
	node   *Node[T]
	index  int
}

func NewObject[T any](c geometry.Circle, data T) *Object[T] {
	return &Object[T]{
		Data:   data,
		circle: c,
		index:  -1,
	}
}

func (o *Object[T]) Circle() geometry.Circle {
	return o.circle
}

func (o *Object[T]) Node() *Node[T] {
	return o.node
}
