package quadtree

import (
	"github.com/aukilabs/spatial/geometry"
)

// Node is a rectangular region of a quadtree. A node is either a leaf or has
// all of its 4 children.
type Node[T any] struct {
	tree      *Quadtree[T]
	parent    *Node[T]
	children  *[4]*Node[T]
	rectangle geometry.Rectangle
	depth     int
	objects   []*Object[T]
}

func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

// Children returns nil for a leaf. Child i covers the upper half of the x and
// y axes when bit 0 and 1 of i are set.
func (n *Node[T]) Children() []*Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[:]
}

func (n *Node[T]) IsLeaf() bool {
	return n.children == nil
}

func (n *Node[T]) Rectangle() geometry.Rectangle {
	return n.rectangle
}

func (n *Node[T]) Depth() int {
	return n.depth
}

func (n *Node[T]) Objects() []*Object[T] {
	return n.objects
}

func (n *Node[T]) add(o *Object[T]) {
	o.node = n
	o.index = len(n.objects)
	n.objects = append(n.objects, o)
}

func (n *Node[T]) remove(o *Object[T]) {
	last := len(n.objects) - 1
	moved := n.objects[last]
	n.objects[o.index] = moved
	moved.index = o.index
	n.objects[last] = nil
	n.objects = n.objects[:last]

	o.node = nil
	o.index = -1
}

func (n *Node[T]) split() {
	width := n.rectangle.Width * 0.5
	height := n.rectangle.Height * 0.5

	var children [4]*Node[T]
	for i := range children {
		x := n.rectangle.X
		if i&1 != 0 {
			x += width
		}

		y := n.rectangle.Y
		if i&2 != 0 {
			y += height
		}

		children[i] = &Node[T]{
			tree:      n.tree,
			parent:    n,
			rectangle: geometry.NewRectangle(x, y, width, height),
			depth:     n.depth + 1,
		}
	}
	n.children = &children
}

func (n *Node[T]) childContaining(c geometry.Circle) *Node[T] {
	center := n.rectangle.Center()

	var i int
	if c.Center[0] >= center[0] {
		i |= 1
	}
	if c.Center[1] >= center[1] {
		i |= 2
	}

	child := n.children[i]
	if !geometry.RectangleContainsCircle(child.rectangle, c) {
		return nil
	}
	return child
}
