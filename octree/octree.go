// Package octree implements a loose octree over axis aligned cubes that
// indexes objects bounded by spheres.
package octree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/geometry"
)

const (
	DefaultSplitThreshold = 8
	DefaultMaxDepth       = 16
	DefaultName           = "octree"
)

const (
	ErrTypeInvalidConfig   = "invalid_config"
	ErrTypeAlreadyInserted = "object_already_inserted"
	ErrTypeNotInserted     = "object_not_inserted"
)

// Octree is a spatial index over a cubic region. Objects are stored at the
// deepest node that fully contains their sphere. Objects outside of the root
// cube are stored at the root.
//
// An octree is not safe for concurrent use.
type Octree[T any] struct {
	name           string
	cube           geometry.Cube
	splitThreshold int
	maxDepth       int
	root           *Node[T]
	count          int
}

// Option configures an octree.
type Option func(*options)

type options struct {
	splitThreshold int
	maxDepth       int
	name           string
}

// WithSplitThreshold sets the number of objects above which a leaf splits.
func WithSplitThreshold(n int) Option {
	return func(o *options) {
		o.splitThreshold = n
	}
}

// WithMaxDepth sets the depth at which nodes stop splitting.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithName sets the name used to label the octree metrics and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// New creates an octree covering the given cube.
func New[T any](cube geometry.Cube, opts ...Option) (*Octree[T], error) {
	o := options{
		splitThreshold: DefaultSplitThreshold,
		maxDepth:       DefaultMaxDepth,
		name:           DefaultName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.splitThreshold < 1 {
		return nil, errors.New("split threshold must be greater than 0").
			WithType(ErrTypeInvalidConfig).
			WithTag("split_threshold", o.splitThreshold)
	}

	if o.maxDepth < 0 {
		return nil, errors.New("max depth must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", o.maxDepth)
	}

	if cube.IsDegenerate() {
		return nil, errors.New("root cube is degenerate").
			WithType(ErrTypeInvalidConfig).
			WithTag("center", cube.Center).
			WithTag("half_edge", cube.HalfEdge)
	}

	t := &Octree[T]{
		name:           o.name,
		cube:           cube,
		splitThreshold: o.splitThreshold,
		maxDepth:       o.maxDepth,
	}
	t.root = t.newRoot()
	return t, nil
}

func (t *Octree[T]) Root() *Node[T] {
	return t.root
}

func (t *Octree[T]) RootCube() geometry.Cube {
	return t.cube
}

func (t *Octree[T]) SplitThreshold() int {
	return t.splitThreshold
}

func (t *Octree[T]) MaxDepth() int {
	return t.maxDepth
}

func (t *Octree[T]) Name() string {
	return t.name
}

// Len returns the number of objects in the octree.
func (t *Octree[T]) Len() int {
	return t.count
}

// Insert adds the object to the octree. It panics if the object is already
// inserted in a tree.
func (t *Octree[T]) Insert(o *Object[T]) {
	if o.node != nil {
		panic(errors.New("object is already inserted").
			WithType(ErrTypeAlreadyInserted).
			WithTag("tree", t.name))
	}

	if geometry.CubeContainsSphere(t.cube, o.sphere) {
		t.insert(t.root, o)
	} else {
		t.warnOutOfBounds(o.sphere)
		t.root.add(o)
	}

	t.count++
	instrumentInsert(t.name)
}

// Remove removes the object from the octree and merges the nodes that became
// empty. It panics if the object is not in the octree.
func (t *Octree[T]) Remove(o *Object[T]) {
	n := t.owner(o)
	n.remove(o)
	t.count--
	instrumentRemove(t.name)

	t.mergeUp(n)
}

// Update changes the sphere of the object. The object stays where it is when
// its node still is the deepest one containing the new sphere. Otherwise it is
// reinserted from the closest ancestor that contains the new sphere.
func (t *Octree[T]) Update(o *Object[T], s geometry.Sphere) {
	n := t.owner(o)

	if geometry.CubeContainsSphere(n.cube, s) {
		if n.IsLeaf() || n.childContaining(s) == nil {
			o.sphere = s
			return
		}
	} else if n == t.root {
		t.warnOutOfBounds(s)
		o.sphere = s
		return
	}

	n.remove(o)
	o.sphere = s

	target := n
	for target.parent != nil && !geometry.CubeContainsSphere(target.cube, s) {
		target = target.parent
	}

	if geometry.CubeContainsSphere(target.cube, s) {
		t.insert(target, o)
	} else {
		t.warnOutOfBounds(s)
		target.add(o)
	}
	instrumentRelocation(t.name)

	t.mergeUp(n)
}

// Clear removes all the objects and nodes from the octree.
func (t *Octree[T]) Clear() {
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

// Walk visits the nodes of the octree in depth first order. The children of a
// node are skipped when fn returns false.
func (t *Octree[T]) Walk(fn func(*Node[T]) bool) {
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

func (t *Octree[T]) newRoot() *Node[T] {
	return &Node[T]{
		tree: t,
		cube: t.cube,
	}
}

func (t *Octree[T]) owner(o *Object[T]) *Node[T] {
	if o.node == nil || o.node.tree != t {
		panic(errors.New("object is not in the tree").
			WithType(ErrTypeNotInserted).
			WithTag("tree", t.name))
	}
	return o.node
}

// insert stores o in the subtree of n. The cube of n must contain the sphere
// of o.
func (t *Octree[T]) insert(n *Node[T], o *Object[T]) {
	for n.children != nil {
		child := n.childContaining(o.sphere)
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

func (t *Octree[T]) split(n *Node[T]) {
	n.split()
	instrumentSplit(t.name)

	objects := n.objects
	n.objects = nil

	for _, o := range objects {
		o.node = nil
		o.index = -1

		if child := n.childContaining(o.sphere); child != nil {
			t.insert(child, o)
		} else {
			n.add(o)
		}
	}
}

func (t *Octree[T]) mergeUp(n *Node[T]) {
	for n != nil && t.tryMerge(n) {
		n = n.parent
	}
}

// tryMerge turns n into a leaf when none of its descendants hold objects. It
// reports whether the subtree of n is empty.
func (t *Octree[T]) tryMerge(n *Node[T]) bool {
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

func (t *Octree[T]) warnOutOfBounds(s geometry.Sphere) {
	logs.WithTag("tree", t.name).
		WithTag("center", s.Center).
		WithTag("radius", s.Radius).
		Warn(errors.New("object is outside of the root cube, storing it at the root"))
}
