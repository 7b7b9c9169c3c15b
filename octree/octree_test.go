package octree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("new octree with default values", func(t *testing.T) {
		tree, err := New[int](geometry.NewCube(0, 0, 0, 100))
		require.NoError(t, err)
		require.Equal(t, DefaultSplitThreshold, tree.SplitThreshold())
		require.Equal(t, DefaultMaxDepth, tree.MaxDepth())
		require.Equal(t, DefaultName, tree.Name())
		require.Equal(t, geometry.NewCube(0, 0, 0, 100), tree.RootCube())
		require.True(t, tree.Root().IsLeaf())
		require.Nil(t, tree.Root().Parent())
		require.Zero(t, tree.Len())
	})

	t.Run("new octree with options", func(t *testing.T) {
		tree, err := New[int](geometry.NewCube(0, 0, 0, 100),
			WithSplitThreshold(3),
			WithMaxDepth(0),
			WithName("test"),
		)
		require.NoError(t, err)
		require.Equal(t, 3, tree.SplitThreshold())
		require.Equal(t, 0, tree.MaxDepth())
		require.Equal(t, "test", tree.Name())
	})

	tests := []struct {
		name string
		cube geometry.Cube
		opts []Option
	}{
		{
			name: "zero split threshold",
			cube: geometry.NewCube(0, 0, 0, 100),
			opts: []Option{WithSplitThreshold(0)},
		},
		{
			name: "negative max depth",
			cube: geometry.NewCube(0, 0, 0, 100),
			opts: []Option{WithMaxDepth(-1)},
		},
		{
			name: "empty root cube",
			cube: geometry.NewCube(0, 0, 0, 0),
		},
		{
			name: "negative root cube",
			cube: geometry.NewCube(0, 0, 0, -10),
		},
	}

	for _, test := range tests {
		t.Run(test.name+" is rejected", func(t *testing.T) {
			tree, err := New[int](test.cube, test.opts...)
			require.Error(t, err)
			require.Nil(t, tree)
			require.Equal(t, ErrTypeInvalidConfig, errors.Type(err))
		})
	}
}

func TestOctreeInsert(t *testing.T) {
	tree := newTestOctree(t, 3)

	objects := []*Object[int]{
		NewObject(geometry.NewSphere(30, 30, 30, 10), 1),
		NewObject(geometry.NewSphere(90, 150, 30, 10), 2),
		NewObject(geometry.NewSphere(110, 120, 30, 10), 3),
		NewObject(geometry.NewSphere(150, 150, 130, 10), 4),
	}

	for _, o := range objects[:3] {
		tree.Insert(o)
		require.Equal(t, tree.Root(), o.Node())
	}
	require.True(t, tree.Root().IsLeaf())
	require.Len(t, tree.Root().Objects(), 3)

	tree.Insert(objects[3])
	require.Equal(t, 4, tree.Len())

	root := tree.Root()
	require.False(t, root.IsLeaf())
	require.Empty(t, root.Objects())

	children := root.Children()
	require.Len(t, children, 8)
	require.Equal(t, children[0], objects[0].Node())
	require.Equal(t, children[2], objects[1].Node())
	require.Equal(t, children[3], objects[2].Node())
	require.Equal(t, children[7], objects[3].Node())

	for i, c := range children {
		require.True(t, c.IsLeaf())
		require.Equal(t, root, c.Parent())
		require.Equal(t, 1, c.Depth())
		require.Equal(t, 50.0, c.Cube().HalfEdge)

		switch i {
		case 0, 2, 3, 7:
			require.Len(t, c.Objects(), 1)
		default:
			require.Empty(t, c.Objects())
		}
	}

	require.Equal(t, mgl64.Vec3{50, 50, 50}, children[0].Cube().Center)
	require.Equal(t, mgl64.Vec3{150, 50, 50}, children[1].Cube().Center)
	require.Equal(t, mgl64.Vec3{50, 150, 50}, children[2].Cube().Center)
	require.Equal(t, mgl64.Vec3{150, 150, 150}, children[7].Cube().Center)

	tree.Clear()
	require.Zero(t, tree.Len())
	require.True(t, tree.Root().IsLeaf())
	require.Empty(t, tree.Root().Objects())
	for _, o := range objects {
		require.Nil(t, o.Node())
	}
}

func TestOctreeInsertStraddlingObject(t *testing.T) {
	tree := newTestOctree(t, 3)

	straddling := NewObject(geometry.NewSphere(10, 10, 100, 10), 4)
	tree.Insert(NewObject(geometry.NewSphere(30, 30, 30, 10), 1))
	tree.Insert(NewObject(geometry.NewSphere(110, 90, 120, 10), 2))
	tree.Insert(NewObject(geometry.NewSphere(160, 180, 150, 10), 3))
	tree.Insert(straddling)

	require.False(t, tree.Root().IsLeaf())
	require.Equal(t, tree.Root(), straddling.Node())
	require.Len(t, tree.Root().Objects(), 1)
}

func TestOctreeInsertAlreadyInserted(t *testing.T) {
	tree := newTestOctree(t, 3)
	o := NewObject(geometry.NewSphere(30, 30, 30, 10), 1)
	tree.Insert(o)

	require.Panics(t, func() {
		tree.Insert(o)
	})

	other := newTestOctree(t, 3)
	require.Panics(t, func() {
		other.Insert(o)
	})
	require.Equal(t, 1, tree.Len())
	require.Zero(t, other.Len())
}

func TestOctreeInsertOutsideRoot(t *testing.T) {
	tree := newTestOctree(t, 1)

	outside := NewObject(geometry.NewSphere(500, 500, 500, 1), 1)
	tree.Insert(outside)
	tree.Insert(NewObject(geometry.NewSphere(30, 30, 30, 10), 2))
	tree.Insert(NewObject(geometry.NewSphere(160, 160, 160, 10), 3))

	require.Equal(t, tree.Root(), outside.Node())
	require.Equal(t, []int{1}, data(tree.QuerySphere(geometry.NewSphere(500, 500, 500, 5), nil)))
	require.Equal(t, []int{1, 2, 3}, data(tree.QueryCube(geometry.NewCube(100, 100, 100, 1000), nil)))

	tree.Update(outside, geometry.NewSphere(600, 600, 600, 1))
	require.Equal(t, tree.Root(), outside.Node())

	tree.Update(outside, geometry.NewSphere(20, 20, 20, 1))
	require.NotEqual(t, tree.Root(), outside.Node())
	require.Equal(t, []int{1, 2}, data(tree.QuerySphere(geometry.NewSphere(25, 25, 25, 10), nil)))
}

func TestOctreeRemove(t *testing.T) {
	tree := newTestOctree(t, 3)

	objects := []*Object[int]{
		NewObject(geometry.NewSphere(30, 30, 30, 10), 1),
		NewObject(geometry.NewSphere(90, 150, 30, 10), 2),
		NewObject(geometry.NewSphere(110, 120, 30, 10), 3),
		NewObject(geometry.NewSphere(150, 150, 130, 10), 4),
	}
	for _, o := range objects {
		tree.Insert(o)
	}
	require.False(t, tree.Root().IsLeaf())

	tree.Remove(objects[0])
	require.Nil(t, objects[0].Node())
	require.Equal(t, 3, tree.Len())
	require.False(t, tree.Root().IsLeaf())

	tree.Remove(objects[1])
	tree.Remove(objects[2])
	require.False(t, tree.Root().IsLeaf())

	tree.Remove(objects[3])
	require.Zero(t, tree.Len())
	require.True(t, tree.Root().IsLeaf())

	t.Run("remove an object that is not inserted", func(t *testing.T) {
		require.Panics(t, func() {
			tree.Remove(objects[0])
		})
	})

	t.Run("remove an object from another tree", func(t *testing.T) {
		other := newTestOctree(t, 3)
		o := NewObject(geometry.NewSphere(30, 30, 30, 10), 1)
		other.Insert(o)

		require.Panics(t, func() {
			tree.Remove(o)
		})
		require.Equal(t, other.Root(), o.Node())
	})
}

func TestOctreeRemoveKeepsIndexes(t *testing.T) {
	tree := newTestOctree(t, 10)

	var objects []*Object[int]
	for i := 0; i < 5; i++ {
		o := NewObject(geometry.NewSphere(float64(10+i*10), 50, 50, 1), i)
		objects = append(objects, o)
		tree.Insert(o)
	}

	tree.Remove(objects[1])
	tree.Remove(objects[4])

	root := tree.Root()
	require.Len(t, root.Objects(), 3)
	for i, o := range root.Objects() {
		require.Equal(t, i, o.index)
		require.Equal(t, root, o.Node())
	}
	require.Equal(t, []int{0, 2, 3}, data(root.Objects()))
}

func TestOctreeMergeNestedSubtrees(t *testing.T) {
	tree := newTestOctree(t, 1)

	var objects []*Object[int]
	for i := 0; i < 4; i++ {
		o := NewObject(geometry.NewSphere(5+float64(i), 5, 5, 0.1), i)
		objects = append(objects, o)
		tree.Insert(o)
	}
	require.Greater(t, tree.Stats().Depth, 2)

	for _, o := range objects {
		tree.Remove(o)
	}

	stats := tree.Stats()
	require.Equal(t, 1, stats.NodeCount)
	require.Equal(t, 0, stats.Depth)
	require.True(t, tree.Root().IsLeaf())
}

func TestOctreeMaxDepth(t *testing.T) {
	t.Run("nodes do not split beyond the max depth", func(t *testing.T) {
		tree, err := New[int](geometry.NewCube(100, 100, 100, 100),
			WithSplitThreshold(1),
			WithMaxDepth(2),
		)
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			tree.Insert(NewObject(geometry.NewSphere(1, 1, 1, 0.001), i))
		}

		stats := tree.Stats()
		require.Equal(t, 2, stats.Depth)
		require.Equal(t, 20, stats.ObjectCount)
		require.Equal(t, 20, stats.ObjectsPerDepth[2])

		tree.Walk(func(n *Node[int]) bool {
			require.LessOrEqual(t, n.Depth(), 2)
			if n.Depth() == 2 {
				require.True(t, n.IsLeaf())
			}
			return true
		})
	})

	t.Run("root never splits with a zero max depth", func(t *testing.T) {
		tree, err := New[int](geometry.NewCube(100, 100, 100, 100),
			WithSplitThreshold(1),
			WithMaxDepth(0),
		)
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			tree.Insert(NewObject(geometry.NewSphere(float64(i*10), 10, 10, 1), i))
		}
		require.True(t, tree.Root().IsLeaf())
		require.Len(t, tree.Root().Objects(), 20)
	})
}

func TestOctreeQuery(t *testing.T) {
	tree := newTestOctree(t, 3)

	objects := []*Object[int]{
		NewObject(geometry.NewSphere(30, 30, 30, 10), 1),
		NewObject(geometry.NewSphere(110, 90, 120, 10), 2),
		NewObject(geometry.NewSphere(160, 180, 150, 10), 3),
		NewObject(geometry.NewSphere(10, 10, 100, 10), 4),
	}
	for _, o := range objects {
		tree.Insert(o)
	}

	result := tree.QuerySphere(geometry.NewSphere(100, 100, 100, 50), nil)
	require.Equal(t, []int{2}, data(result))

	result = tree.QueryCube(geometry.NewCube(100, 100, 100, 50), nil)
	require.Equal(t, []int{2}, data(result))

	t.Run("query appends to the given slice", func(t *testing.T) {
		dst := []*Object[int]{objects[0]}
		dst = tree.QuerySphere(geometry.NewSphere(100, 100, 100, 50), dst)
		require.Equal(t, []int{1, 2}, data(dst))
	})

	t.Run("degenerate queries return nothing", func(t *testing.T) {
		require.Empty(t, tree.QuerySphere(geometry.NewSphere(100, 100, 100, 0), nil))
		require.Empty(t, tree.QueryCube(geometry.NewCube(100, 100, 100, -1), nil))
		require.Empty(t, tree.QueryFrustum(geometry.Frustum{}, nil))
	})

	t.Run("query covering the root returns every object", func(t *testing.T) {
		result := tree.QueryCube(tree.RootCube(), nil)
		require.Equal(t, []int{1, 2, 3, 4}, data(result))
	})
}

func TestOctreeQueryFrustum(t *testing.T) {
	tree, err := New[int](geometry.NewCube(0, 0, 0, 100), WithSplitThreshold(1))
	require.NoError(t, err)

	tree.Insert(NewObject(geometry.NewSphere(0, 0, -20, 1), 1))
	tree.Insert(NewObject(geometry.NewSphere(0, 0, 20, 1), 2))
	tree.Insert(NewObject(geometry.NewSphere(0, 0, -80, 1), 3))
	tree.Insert(NewObject(geometry.NewSphere(-30, 0, -20, 1), 4))
	tree.Insert(NewObject(geometry.NewSphere(10, 0, -20, 1), 5))

	frustum := geometry.NewFrustum(mgl64.Perspective(mgl64.DegToRad(90), 1, 1, 50))
	require.Equal(t, []int{1, 5}, data(tree.QueryFrustum(frustum, nil)))

	frustum = geometry.NewPerspectiveFrustum(90, 1, 1, 50,
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, 0, 1},
		mgl64.Vec3{0, 1, 0},
	)
	require.Equal(t, []int{2}, data(tree.QueryFrustum(frustum, nil)))
}

func TestOctreeUpdate(t *testing.T) {
	tree := newTestOctree(t, 3)

	objects := []*Object[int]{
		NewObject(geometry.NewSphere(30, 30, 30, 10), 1),
		NewObject(geometry.NewSphere(110, 90, 120, 10), 2),
		NewObject(geometry.NewSphere(160, 180, 150, 10), 3),
		NewObject(geometry.NewSphere(10, 10, 100, 10), 4),
	}
	for _, o := range objects {
		tree.Insert(o)
	}

	t.Run("update within the node", func(t *testing.T) {
		node := objects[0].Node()
		stats := tree.Stats()

		tree.Update(objects[0], geometry.NewSphere(35, 30, 30, 10))
		require.Equal(t, node, objects[0].Node())
		require.Equal(t, stats, tree.Stats())
		require.Equal(t, geometry.NewSphere(35, 30, 30, 10), objects[0].Sphere())
	})

	t.Run("update to another node", func(t *testing.T) {
		tree.Update(objects[1], geometry.NewSphere(10, 20, 10, 10))
		tree.Update(objects[2], geometry.NewSphere(100, 100, 100, 10))

		require.Equal(t, tree.Root().Children()[0], objects[1].Node())
		require.Equal(t, tree.Root(), objects[2].Node())

		result := tree.QuerySphere(geometry.NewSphere(100, 100, 100, 50), nil)
		require.Equal(t, []int{3}, data(result))

		result = tree.QuerySphere(geometry.NewSphere(10, 20, 10, 1), nil)
		require.Equal(t, []int{2}, data(result))
		require.Equal(t, 4, tree.Len())
	})

	t.Run("update the radius", func(t *testing.T) {
		tree.Update(objects[1], geometry.NewSphere(10, 20, 10, 80))
		require.Equal(t, tree.Root(), objects[1].Node())

		tree.Update(objects[1], geometry.NewSphere(10, 20, 10, 5))
		require.Equal(t, tree.Root().Children()[0], objects[1].Node())
	})

	t.Run("update an object that is not inserted", func(t *testing.T) {
		require.Panics(t, func() {
			tree.Update(NewObject(geometry.NewSphere(0, 0, 0, 1), 42), geometry.NewSphere(1, 1, 1, 1))
		})
	})
}

func TestOctreeClear(t *testing.T) {
	tree := newTestOctree(t, 2)

	var objects []*Object[int]
	for i := 0; i < 50; i++ {
		o := NewObject(geometry.NewSphere(float64(i*4), float64(i*3), float64(i*2), 1), i)
		objects = append(objects, o)
		tree.Insert(o)
	}
	require.False(t, tree.Root().IsLeaf())

	tree.Clear()
	require.Zero(t, tree.Len())
	require.True(t, tree.Root().IsLeaf())
	require.Equal(t, 1, tree.Stats().NodeCount)
	require.Empty(t, tree.QueryCube(tree.RootCube(), nil))

	for _, o := range objects {
		require.Nil(t, o.Node())
		require.Panics(t, func() {
			tree.Remove(o)
		})
	}

	tree.Insert(objects[0])
	require.Equal(t, 1, tree.Len())
}

func TestOctreeStats(t *testing.T) {
	tree := newTestOctree(t, 3)
	tree.Insert(NewObject(geometry.NewSphere(30, 30, 30, 10), 1))
	tree.Insert(NewObject(geometry.NewSphere(110, 90, 120, 10), 2))
	tree.Insert(NewObject(geometry.NewSphere(160, 180, 150, 10), 3))
	tree.Insert(NewObject(geometry.NewSphere(10, 10, 100, 10), 4))

	require.Equal(t, Stats{
		NodeCount:       9,
		LeafCount:       8,
		ObjectCount:     4,
		Depth:           1,
		ObjectsPerDepth: []int{1, 3},
	}, tree.Stats())
}

func TestOctreeRandomOperations(t *testing.T) {
	const size = 1000

	tree, err := New[int](geometry.NewCube(0, 0, 0, size), WithSplitThreshold(4), WithMaxDepth(6))
	require.NoError(t, err)

	r := rand.New(rand.NewSource(42))
	randomSphere := func() geometry.Sphere {
		return geometry.NewSphere(
			(r.Float64()*2-1)*size,
			(r.Float64()*2-1)*size,
			(r.Float64()*2-1)*size,
			r.Float64()*50,
		)
	}

	inserted := make(map[int]*Object[int])
	var removed []*Object[int]

	for i := 0; i < 2000; i++ {
		switch op := r.Intn(10); {
		case op < 5 || len(inserted) == 0:
			var o *Object[int]
			if len(removed) != 0 && op == 0 {
				o = removed[len(removed)-1]
				removed = removed[:len(removed)-1]
				o.sphere = randomSphere()
			} else {
				o = NewObject(randomSphere(), i)
			}
			tree.Insert(o)
			inserted[o.Data] = o

		case op < 7:
			o := pick(r, inserted)
			tree.Remove(o)
			delete(inserted, o.Data)
			removed = append(removed, o)

		default:
			o := pick(r, inserted)
			s := o.Sphere()
			if op == 9 {
				s = randomSphere()
			} else {
				s.Center = s.Center.Add(mgl64.Vec3{r.Float64()*10 - 5, r.Float64()*10 - 5, r.Float64()*10 - 5})
			}
			tree.Update(o, s)
		}

		if i%100 == 0 {
			requireConsistent(t, tree, inserted)
			requireQueriesMatch(t, r, tree, inserted)
		}
	}

	requireConsistent(t, tree, inserted)

	for _, o := range inserted {
		tree.Remove(o)
	}
	require.Zero(t, tree.Len())
	require.True(t, tree.Root().IsLeaf())
}

func requireConsistent(t *testing.T, tree *Octree[int], inserted map[int]*Object[int]) {
	seen := make(map[int]bool)

	tree.Walk(func(n *Node[int]) bool {
		require.LessOrEqual(t, n.Depth(), tree.MaxDepth())

		for i, o := range n.Objects() {
			require.False(t, seen[o.Data], "object %d stored twice", o.Data)
			seen[o.Data] = true

			require.Equal(t, n, o.Node())
			require.Equal(t, i, o.index)
			if n != tree.Root() {
				require.True(t, geometry.CubeContainsSphere(n.Cube(), o.Sphere()))
			}
		}

		if !n.IsLeaf() {
			require.NotZero(t, countObjects(n), "empty subtree at depth %d", n.Depth())
		}
		return true
	})

	require.Len(t, seen, len(inserted))
	require.Equal(t, len(inserted), tree.Len())
	for id := range inserted {
		require.True(t, seen[id])
	}

	require.Len(t, tree.QueryCube(geometry.NewCube(0, 0, 0, 10000), nil), len(inserted))
}

func requireQueriesMatch(t *testing.T, r *rand.Rand, tree *Octree[int], inserted map[int]*Object[int]) {
	for i := 0; i < 10; i++ {
		s := geometry.NewSphere(r.Float64()*1000-500, r.Float64()*1000-500, r.Float64()*1000-500, r.Float64()*300)
		c := geometry.NewCube(r.Float64()*1000-500, r.Float64()*1000-500, r.Float64()*1000-500, r.Float64()*300)

		var expectedSphere, expectedCube []int
		for id, o := range inserted {
			if geometry.SphereIntersectsSphere(s, o.Sphere()) {
				expectedSphere = append(expectedSphere, id)
			}
			if geometry.CubeIntersectsSphere(c, o.Sphere()) {
				expectedCube = append(expectedCube, id)
			}
		}
		sort.Ints(expectedSphere)
		sort.Ints(expectedCube)

		require.Equal(t, expectedSphere, data(tree.QuerySphere(s, nil)))
		require.Equal(t, expectedCube, data(tree.QueryCube(c, nil)))
	}
}

func countObjects(n *Node[int]) int {
	count := len(n.Objects())
	for _, c := range n.Children() {
		count += countObjects(c)
	}
	return count
}

func pick(r *rand.Rand, objects map[int]*Object[int]) *Object[int] {
	ids := make([]int, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return objects[ids[r.Intn(len(ids))]]
}

func newTestOctree(t *testing.T, splitThreshold int) *Octree[int] {
	tree, err := New[int](geometry.NewCube(100, 100, 100, 100), WithSplitThreshold(splitThreshold))
	require.NoError(t, err)
	return tree
}

func data(objects []*Object[int]) []int {
	var res []int
	for _, o := range objects {
		res = append(res, o.Data)
	}
	sort.Ints(res)
	return res
}
