package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceAPI         = "api"
	namespaceCoordinator = "coordinator"
)

var (
	// TxsAdmitted admitted pool tx count
	TxsAdmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceAPI,
			Name:      "txs_admitted_total",
			Help:      "",
		})

	// TxsRejected rejected pool tx count, by reason
	TxsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceAPI,
			Name:      "txs_rejected_total",
			Help:      "",
		}, []string{"reason"})

	// TxsDropped txs dropped during batch selection, by reason
	TxsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceCoordinator,
			Name:      "txs_dropped_total",
			Help:      "",
		}, []string{"reason"})

	// BatchesSubmitted batches accepted by the anchor contract
	BatchesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceCoordinator,
			Name:      "batches_submitted_total",
			Help:      "",
		})

	// BatchSubmitFailures batches whose submission exhausted all attempts
	BatchSubmitFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceCoordinator,
			Name:      "batch_submit_failures_total",
			Help:      "",
		})

	// LastBatchNum last batch successfully submitted
	LastBatchNum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceCoordinator,
			Name:      "last_batch_num",
			Help:      "",
		})

	// PoolSize pending txs left in the pool after the last drain
	PoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceCoordinator,
			Name:      "pool_size",
			Help:      "",
		})
)

func init() {
	prometheus.MustRegister(
		TxsAdmitted,
		TxsRejected,
		TxsDropped,
		BatchesSubmitted,
		BatchSubmitFailures,
		LastBatchNum,
		PoolSize,
	)
}
