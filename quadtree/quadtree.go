package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultSplitThreshold = 4
	DefaultMaxDepth       = 16
	DefaultName           = "quadtree"
)

const (
	ErrTypeInvalidConfig   = "invalid_config"
	ErrTypeAlreadyInserted = "object_already_inserted"
	ErrTypeNotInserted     = "object_not_inserted"
)

// Quadtree is a loose quadtree: an object lives at the deepest node whose
// rectangle contains its whole circle. Objects that are not contained by the
// root rectangle live at the root.
//
// A quadtree is not safe for concurrent use.
type Quadtree[T any] struct {
	name           string
	rectangle      geometry.Rectangle
	splitThreshold int
	maxDepth       int
	root           *Node[T]
	count          int
}

type Option func(*options)

type options struct {
	splitThreshold int
	maxDepth       int
	name           string
}

func WithSplitThreshold(n int) Option {
	return func(o *options) {
		o.splitThreshold = n
	}
}

func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithName sets the tree label reported in metrics and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// New creates a quadtree covering the given rectangle.
func New[T any](r geometry.Rectangle, opts ...Option) (*Quadtree[T], error) {
	o := options{
		splitThreshold: DefaultSplitThreshold,
		maxDepth:       DefaultMaxDepth,
		name:           DefaultName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case o.splitThreshold < 1:
		return nil, errors.New("split threshold must be greater than 0").
			WithType(ErrTypeInvalidConfig).
			WithTag("split_threshold", o.splitThreshold)

	case o.maxDepth < 0:
		return nil, errors.New("max depth must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", o.maxDepth)

	case r.IsDegenerate():
		return nil, errors.New("root rectangle is degenerate").
			WithType(ErrTypeInvalidConfig).
			WithTag("rectangle", r)
	}

	t := &Quadtree[T]{
		name:           o.name,
		rectangle:      r,
		splitThreshold: o.splitThreshold,
		maxDepth:       o.maxDepth,
	}
	t.root = t.newRoot()
	return t, nil
}

func (t *Quadtree[T]) Root() *Node[T] {
	return t.root
}

func (t *Quadtree[T]) RootRectangle() geometry.Rectangle {
	return t.rectangle
}

func (t *Quadtree[T]) SplitThreshold() int {
	return t.splitThreshold
}

func (t *Quadtree[T]) MaxDepth() int {
	return t.maxDepth
}

func (t *Quadtree[T]) Name() string {
	return t.name
}

func (t *Quadtree[T]) Len() int {
	return t.count
}

// Insert adds the object to the quadtree. Inserting an object that already
// is in a tree panics.
func (t *Quadtree[T]) Insert(o *Object[T]) {
	if o.node != nil {
		panic(errors.New("object is already inserted").
			WithType(ErrTypeAlreadyInserted).
			WithTag("tree", t.name))
	}

	if geometry.RectangleContainsCircle(t.rectangle, o.circle) {
		t.insert(t.root, o)
	} else {
		t.warnOutOfBounds(o.circle)
		t.root.add(o)
	}

	t.count++
	instrumentInsert(t.name)
}

// Remove removes the object from the quadtree. Removing an object that is not
// in the quadtree panics.
func (t *Quadtree[T]) Remove(o *Object[T]) {
	n := t.owner(o)
	n.remove(o)
	t.count--
	instrumentRemove(t.name)

	t.mergeUp(n)
}

// Update moves the object to the given position.
func (t *Quadtree[T]) Update(o *Object[T], position mgl64.Vec2) {
	n := t.owner(o)
	c := geometry.Circle{Center: position, Radius: o.circle.Radius}

	if geometry.RectangleContainsCircle(n.rectangle, c) {
		if n.IsLeaf() || n.childContaining(c) == nil {
			o.circle = c
			return
		}
	} else if n == t.root {
		t.warnOutOfBounds(c)
		o.circle = c
		return
	}

	n.remove(o)
	o.circle = c

	ancestor := n
	for ancestor.parent != nil && !geometry.RectangleContainsCircle(ancestor.rectangle, c) {
		ancestor = ancestor.parent
	}

	if geometry.RectangleContainsCircle(ancestor.rectangle, c) {
		t.insert(ancestor, o)
	} else {
		t.warnOutOfBounds(c)
		ancestor.add(o)
	}
	instrumentRelocation(t.name)

	t.mergeUp(n)
}

// Clear drops every node and detaches the objects.
func (t *Quadtree[T]) Clear() {
	t.Walk(func(n *Node[T]) bool {
		for _, o := range n.objects {
			o.node = nil
			o.index = -1
		}
		n.objects = nil
		n.tree = nil
		return true
	})

	instrumentClear(t.name, t.count)
	t.count = 0
	t.root = t.newRoot()
}

// Walk visits the nodes depth first. Returning false from fn skips the
// children of the visited node.
func (t *Quadtree[T]) Walk(fn func(*Node[T]) bool) {
	walk(t.root, fn)
}

func walk[T any](n *Node[T], fn func(*Node[T]) bool) {
	if !fn(n) || n.children == nil {
		return
	}

	for _, c := range n.children {
		walk(c, fn)
	}
}

func (t *Quadtree[T]) newRoot() *Node[T] {
	return &Node[T]{
		tree:      t,
		rectangle: t.rectangle,
	}
}

func (t *Quadtree[T]) owner(o *Object[T]) *Node[T] {
	if o.node == nil || o.node.tree != t {
		panic(errors.New("object is not in the tree").
			WithType(ErrTypeNotInserted).
			WithTag("tree", t.name))
	}
	return o.node
}

func (t *Quadtree[T]) insert(n *Node[T], o *Object[T]) {
	for n.children != nil {
		child := n.childContaining(o.circle)
		if child == nil {
			n.add(o)
			return
		}
		n = child
	}

	n.add(o)
	if len(n.objects) > t.splitThreshold && n.depth < t.maxDepth {
		t.split(n)
	}
}

// split subdivides n and pushes down the objects that fit in a child. The
// others stay at n.
func (t *Quadtree[T]) split(n *Node[T]) {
	n.split()
	instrumentSplit(t.name)

	objects := n.objects
	n.objects = nil

	for _, o := range objects {
		o.node = nil
		o.index = -1

		if child := n.childContaining(o.circle); child != nil {
			t.insert(child, o)
			continue
		}
		n.add(o)
	}
}

func (t *Quadtree[T]) mergeUp(n *Node[T]) {
	for n != nil && t.tryMerge(n) {
		n = n.parent
	}
}

// tryMerge drops the children of n when its whole subtree below n is empty,
// and reports whether n itself holds no objects afterwards.
func (t *Quadtree[T]) tryMerge(n *Node[T]) bool {
	if n.children != nil {
		for _, c := range n.children {
			if !t.tryMerge(c) {
				return false
			}
		}

		for _, c := range n.children {
			c.parent = nil
			c.tree = nil
		}
		n.children = nil
		instrumentMerge(t.name)
	}
	return len(n.objects) == 0
}

func (t *Quadtree[T]) warnOutOfBounds(c geometry.Circle) {
	logs.WithTag("tree", t.name).
		WithTag("center", c.Center).
		WithTag("radius", c.Radius).
		Warn(errors.New("object is outside of the root rectangle, storing it at the root"))
}
