package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sceneNameLabel = "scene_name"
)

var (
	kenazSceneCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_count",
		Help: "The number of loaded scenes.",
	})

	kenazSceneCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_count_total",
		Help: "The total number of loaded scenes.",
	})

	kenazSceneTriangles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scene_triangles",
		Help: "The number of triangles indexed by a scene.",
	}, []string{sceneNameLabel})
)

func instrumentAddScene(s *Scene) {
	kenazSceneCount.Inc()
	kenazSceneCountTotal.Inc()
	kenazSceneTriangles.
		With(prometheus.Labels{sceneNameLabel: s.Name}).
		Set(float64(s.TriangleCount()))
}

func instrumentRemoveScene(s *Scene) {
	kenazSceneCount.Dec()
	kenazSceneTriangles.Delete(prometheus.Labels{sceneNameLabel: s.Name})
}
