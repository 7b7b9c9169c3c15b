package quadtree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	treeLabel      = "tree"
	queryTypeLabel = "query_type"
)

var (
	quadtreeObjectCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_object_count",
		Help: "The number of objects stored in quadtrees.",
	}, []string{treeLabel})

	quadtreeOperationCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_operation_count",
		Help: "The number of quadtree structural operations.",
	}, []string{treeLabel, "operation"})

	quadtreeQueryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_query_count",
		Help: "The number of quadtree queries.",
	}, []string{treeLabel, queryTypeLabel})
)

func instrumentInsert(tree string) {
	instrumentOperation(tree, "insert")
	quadtreeObjectCount.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentRemove(tree string) {
	instrumentOperation(tree, "remove")
	quadtreeObjectCount.
		With(prometheus.Labels{treeLabel: tree}).
		Dec()
}

func instrumentClear(tree string, count int) {
	instrumentOperation(tree, "clear")
	quadtreeObjectCount.
		With(prometheus.Labels{treeLabel: tree}).
		Sub(float64(count))
}

func instrumentRelocation(tree string) {
	instrumentOperation(tree, "relocation")
}

func instrumentSplit(tree string) {
	instrumentOperation(tree, "split")
}

func instrumentMerge(tree string) {
	instrumentOperation(tree, "merge")
}

func instrumentOperation(tree, operation string) {
	quadtreeOperationCount.
		With(prometheus.Labels{
			treeLabel:   tree,
			"operation": operation,
		}).
		Inc()
}

func instrumentQuery(tree, queryType string) {
	quadtreeQueryCount.
		With(prometheus.Labels{
			treeLabel:      tree,
			queryTypeLabel: queryType,
		}).
		Inc()
}
