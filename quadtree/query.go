package quadtree

import (
	"github.com/aukilabs/spatial/geometry"
)

// QueryCircle appends to dst the objects whose circle intersects c.
func (t *Quadtree[T]) QueryCircle(c geometry.Circle, dst []*Object[T]) []*Object[T] {
	instrumentQuery(t.name, "circle")
	if c.IsDegenerate() {
		return dst
	}
	return query(t.root, circleArea(c), dst)
}

// QueryRectangle appends to dst the objects whose circle intersects r.
func (t *Quadtree[T]) QueryRectangle(r geometry.Rectangle, dst []*Object[T]) []*Object[T] {
	instrumentQuery(t.name, "rectangle")
	if r.IsDegenerate() {
		return dst
	}
	return query(t.root, rectangleArea(r), dst)
}

type area interface {
	intersectsRectangle(geometry.Rectangle) bool
	intersectsCircle(geometry.Circle) bool
}

type circleArea geometry.Circle

func (a circleArea) intersectsRectangle(r geometry.Rectangle) bool {
	return geometry.CircleIntersectsRectangle(geometry.Circle(a), r)
}

func (a circleArea) intersectsCircle(c geometry.Circle) bool {
	return geometry.CircleIntersectsCircle(geometry.Circle(a), c)
}

type rectangleArea geometry.Rectangle

func (a rectangleArea) intersectsRectangle(r geometry.Rectangle) bool {
	return geometry.RectangleIntersectsRectangle(geometry.Rectangle(a), r)
}

func (a rectangleArea) intersectsCircle(c geometry.Circle) bool {
	return geometry.CircleIntersectsRectangle(c, geometry.Rectangle(a))
}

func query[T any, A area](root *Node[T], a A, dst []*Object[T]) []*Object[T] {
	// Root objects may lie outside of the root rectangle.
	dst = appendIntersecting(root, a, dst)
	if root.children == nil || !a.intersectsRectangle(root.rectangle) {
		return dst
	}

	for _, c := range root.children {
		dst = queryNode(c, a, dst)
	}
	return dst
}

func queryNode[T any, A area](n *Node[T], a A, dst []*Object[T]) []*Object[T] {
	if !a.intersectsRectangle(n.rectangle) {
		return dst
	}

	dst = appendIntersecting(n, a, dst)
	for _, c := range n.Children() {
		dst = queryNode(c, a, dst)
	}
	return dst
}

func appendIntersecting[T any, A area](n *Node[T], a A, dst []*Object[T]) []*Object[T] {
	for _, o := range n.objects {
		if a.intersectsCircle(o.circle) {
			dst = append(dst, o)
		}
	}
	return dst
}
