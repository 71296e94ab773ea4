package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "haccp"

// Metrics groups the counters exported by the compliance engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	observationsTotal *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	cyclesTotal       *prometheus.CounterVec
	purgedTotal       prometheus.Counter
	purgeFailedTotal  prometheus.Counter
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		observationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_ingested_total",
				Help:      "Observations appended to the log, by kind and conformity",
			},
			[]string{"kind", "conforme"},
		),
		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_rejected_total",
				Help:      "Observations rejected at intake, by kind and field",
			},
			[]string{"kind", "field"},
		),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cycles_total",
				Help:      "Report cycles by final state and failing step",
			},
			[]string{"state", "step"},
		),
		purgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_purged_total",
			Help:      "Archive entries deleted by the retention sweep",
		}),
		purgeFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_purge_failures_total",
			Help:      "Archive entries the retention sweep failed to delete",
		}),
	}

	registry.MustRegister(
		m.observationsTotal,
		m.rejectedTotal,
		m.cyclesTotal,
		m.purgedTotal,
		m.purgeFailedTotal,
	)

	return m
}

// ObservationIngested counts one appended observation.
func (m *Metrics) ObservationIngested(kind string, conforme bool) {
	if m == nil {
		return
	}
	m.observationsTotal.WithLabelValues(kind, strconv.FormatBool(conforme)).Inc()
}

// ObservationRejected counts one observation refused by validation.
func (m *Metrics) ObservationRejected(kind, field string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(kind, field).Inc()
}

// CycleFinished counts one report cycle. step is empty for successful cycles.
func (m *Metrics) CycleFinished(state, step string) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(state, step).Inc()
}

// Purged counts deleted and failed archive entries of one sweep.
func (m *Metrics) Purged(deleted, failed int) {
	if m == nil {
		return
	}
	m.purgedTotal.Add(float64(deleted))
	m.purgeFailedTotal.Add(float64(failed))
}
