package cluster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type memberMetrics struct {
	blobsSent        prometheus.Counter
	blobsReceived    prometheus.Counter
	blobBytes        *prometheus.CounterVec
	blobSendDuration prometheus.Histogram
	partitionsServed prometheus.Counter
	partitionFetches *prometheus.CounterVec
}

// newMemberMetrics creates the metrics of a Member. Nothing is registered if reg is nil.
func newMemberMetrics(reg prometheus.Registerer) *memberMetrics {
	factory := promauto.With(reg)
	return &memberMetrics{
		blobsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liquid",
			Name:      "blobs_sent_total",
			Help:      "Total number of blobs sent to other members.",
		}),
		blobsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liquid",
			Name:      "blobs_received_total",
			Help:      "Total number of blobs received from other members.",
		}),
		blobBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquid",
			Name:      "blob_bytes_total",
			Help:      "Total size of blobs exchanged with other members.",
		}, []string{"direction"}),
		blobSendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "liquid",
			Name:      "blob_send_duration_seconds",
			Help:      "Time taken to deliver a blob to another member.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		partitionsServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liquid",
			Name:      "partitions_served_total",
			Help:      "Total number of partitions streamed to other members.",
		}),
		partitionFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquid",
			Name:      "partition_fetches_total",
			Help:      "Total number of remote partition lookups, by whether they were served from the local cache.",
		}, []string{"cached"}),
	}
}
