package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 向量检索核心的Prometheus指标
var (
	SearchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pimhub_search_total",
		Help: "Total number of search requests by outcome",
	}, []string{"outcome"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pimhub_search_duration_seconds",
		Help:    "Search request latency",
		Buckets: prometheus.DefBuckets,
	})

	CollectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pimhub_collection_failures_total",
		Help: "Fan-out search failures per collection",
	}, []string{"collection"})

	UpsertTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pimhub_vector_upsert_total",
		Help: "Vector points upserted by outcome",
	}, []string{"outcome"})

	EmbeddingCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pimhub_embedding_cache_total",
		Help: "Embedding cache lookups by result",
	}, []string{"result"})
)
