package octree

import (
	"github.com/aukilabs/spatial/geometry"
)

// Node is a cubic region of an octree. A node is either a leaf or has all of
// its 8 children.
type Node[T any] struct {
	tree     *Octree[T]
	parent   *Node[T]
	children *[8]*Node[T]
	cube     geometry.Cube
	depth    int
	objects  []*Object[T]
}

func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

// Children returns the 8 children of the node, or nil when the node is a
// leaf. Child i covers the upper half of the x, y and z axes when bit 0, 1 and
// 2 of i are set.
func (n *Node[T]) Children() []*Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[:]
}

func (n *Node[T]) IsLeaf() bool {
	return n.children == nil
}

func (n *Node[T]) Cube() geometry.Cube {
	return n.cube
}

func (n *Node[T]) Depth() int {
	return n.depth
}

// Objects returns the objects stored directly at the node. The returned slice
// must not be modified.
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
	quarter := n.cube.HalfEdge * 0.5

	var children [8]*Node[T]
	for i := range children {
		center := n.cube.Center
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				center[axis] += quarter
			} else {
				center[axis] -= quarter
			}
		}

		children[i] = &Node[T]{
			tree:   n.tree,
			parent: n,
			cube:   geometry.Cube{Center: center, HalfEdge: quarter},
			depth:  n.depth + 1,
		}
	}
	n.children = &children
}

// childContaining returns the child that fully contains s, or nil when s
// straddles the child boundaries. Must be called on a node with children.
func (n *Node[T]) childContaining(s geometry.Sphere) *Node[T] {
	var i int
	for axis := 0; axis < 3; axis++ {
		if s.Center[axis] >= n.cube.Center[axis] {
			i |= 1 << axis
		}
	}

	child := n.children[i]
	if !geometry.CubeContainsSphere(child.cube, s) {
		return nil
	}
	return child
}
