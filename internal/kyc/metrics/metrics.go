package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal    prometheus.Counter
	DeletionsTotal      prometheus.Counter
	PersistenceFailures *prometheus.CounterVec
	CascadeFailures     prometheus.Counter
	ReadFailures        *prometheus.CounterVec
	KYCRecords          prometheus.Gauge
	ExportsTotal        *prometheus.CounterVec
}

// New registers the record store metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_kyc_submissions_total",
			Help: "Total number of KYC submissions persisted",
		}),
		DeletionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_kyc_deletions_total",
			Help: "Total number of KYC records deleted",
		}),
		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocknexus_kyc_persistence_failures_total",
			Help: "Writes rejected by the storage medium, by operation",
		}, []string{"op"}),
		CascadeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "blocknexus_kyc_cascade_failures_total",
			Help: "User status updates that failed after a KYC create or delete",
		}),
		ReadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocknexus_kyc_read_failures_total",
			Help: "Collection reads that degraded to an empty result, by collection",
		}, []string{"collection"}),
		KYCRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blocknexus_kyc_records",
			Help: "Number of KYC records after the last write",
		}),
		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blocknexus_kyc_exports_total",
			Help: "KYC collection exports, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementSubmissions() {
	m.SubmissionsTotal.Inc()
}

func (m *Metrics) IncrementDeletions() {
	m.DeletionsTotal.Inc()
}

func (m *Metrics) IncrementPersistenceFailures(op string) {
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementCascadeFailures() {
	m.CascadeFailures.Inc()
}

func (m *Metrics) IncrementReadFailures(collection string) {
	m.ReadFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) SetKYCRecords(count int) {
	m.KYCRecords.Set(float64(count))
}

func (m *Metrics) IncrementExports(result string) {
	m.ExportsTotal.WithLabelValues(result).Inc()
}
