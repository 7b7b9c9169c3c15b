package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	queryTypeLabel = "query_type"
)

var (
	sceneCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_count",
		Help: "The number of scenes.",
	})

	sceneCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_count_total",
		Help: "The total number of scenes.",
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "entity_count",
		Help: "The number of entities in all the scenes.",
	})

	sceneQueryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_query_count",
		Help: "The number of scene queries.",
	}, []string{queryTypeLabel})
)

func instrumentIncreaseSceneGauge() {
	sceneCount.Inc()
}

func instrumentDecreaseSceneGauge() {
	sceneCount.Dec()
}

func instrumentCountScene() {
	sceneCountTotal.Inc()
}

func instrumentIncreaseEntityGauge() {
	entityCount.Inc()
}

func instrumentDecreaseEntityGauge() {
	entityCount.Dec()
}

func instrumentRemoveEntities(count int) {
	entityCount.Sub(float64(count))
}

func instrumentQuery(queryType QueryType) {
	sceneQueryCount.
		With(prometheus.Labels{queryTypeLabel: string(queryType)}).
		Inc()
}
