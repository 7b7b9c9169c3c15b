package octree

// Stats describes the shape of an octree.
type Stats struct {
	NodeCount       int   `json:"node_count"`
	LeafCount       int   `json:"leaf_count"`
	ObjectCount     int   `json:"object_count"`
	Depth           int   `json:"depth"`
	ObjectsPerDepth []int `json:"objects_per_depth"`
}

func (t *Octree[T]) Stats() Stats {
	var s Stats

	t.Walk(func(n *Node[T]) bool {
		s.NodeCount++
		if n.IsLeaf() {
			s.LeafCount++
		}

		if n.depth > s.Depth {
			s.Depth = n.depth
		}

		for len(s.ObjectsPerDepth) <= n.depth {
			s.ObjectsPerDepth = append(s.ObjectsPerDepth, 0)
		}
		s.ObjectsPerDepth[n.depth] += len(n.objects)
		s.ObjectCount += len(n.objects)
		return true
	})

	return s
}
