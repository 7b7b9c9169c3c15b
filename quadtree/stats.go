package quadtree

type Stats struct {
	NodeCount       int   `json:"node_count"`
	LeafCount       int   `json:"leaf_count"`
	ObjectCount     int   `json:"object_count"`
	Depth           int   `json:"depth"`
	ObjectsPerDepth []int `json:"objects_per_depth"`
}

// Stats walks the whole tree, it is meant for debugging.
func (t *Quadtree[T]) Stats() Stats {
	s := Stats{
		ObjectsPerDepth: []int{0},
	}

	t.Walk(func(n *Node[T]) bool {
		s.NodeCount++
		if n.IsLeaf() {
			s.LeafCount++
		}

		if n.depth > s.Depth {
			s.Depth = n.depth
			s.ObjectsPerDepth = append(s.ObjectsPerDepth, make([]int, n.depth+1-len(s.ObjectsPerDepth))...)
		}
		s.ObjectsPerDepth[n.depth] += len(n.objects)
		s.ObjectCount += len(n.objects)
		return true
	})

	return s
}
