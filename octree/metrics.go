package octree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	treeLabel      = "tree"
	queryTypeLabel = "query_type"
)

var (
	octreeObjectCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octree_object_count",
		Help: "The number of objects stored in octrees.",
	}, []string{treeLabel})

	octreeInsertCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_insert_count",
		Help: "The number of objects inserted in octrees.",
	}, []string{treeLabel})

	octreeRemoveCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_remove_count",
		Help: "The number of objects removed from octrees.",
	}, []string{treeLabel})

	octreeRelocationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_relocation_count",
		Help: "The number of updates that moved an object to another node.",
	}, []string{treeLabel})

	octreeSplitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_split_count",
		Help: "The number of octree node splits.",
	}, []string{treeLabel})

	octreeMergeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_merge_count",
		Help: "The number of octree node merges.",
	}, []string{treeLabel})

	octreeQueryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_query_count",
		Help: "The number of octree queries.",
	}, []string{treeLabel, queryTypeLabel})
)

func instrumentInsert(tree string) {
	labels := prometheus.Labels{treeLabel: tree}
	octreeInsertCount.With(labels).Inc()
	octreeObjectCount.With(labels).Inc()
}

func instrumentRemove(tree string) {
	labels := prometheus.Labels{treeLabel: tree}
	octreeRemoveCount.With(labels).Inc()
	octreeObjectCount.With(labels).Dec()
}

func instrumentClear(tree string, count int) {
	octreeObjectCount.
		With(prometheus.Labels{treeLabel: tree}).
		Sub(float64(count))
}

func instrumentRelocation(tree string) {
	octreeRelocationCount.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentSplit(tree string) {
	octreeSplitCount.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentMerge(tree string) {
	octreeMergeCount.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentQuery(tree, queryType string) {
	octreeQueryCount.
		With(prometheus.Labels{
			treeLabel:      tree,
			queryTypeLabel: queryType,
		}).
		Inc()
}
