package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VerifierMetrics tracks the verification engine's counters. All methods are
// nil-safe so the engine can run without a collector in tests.
type VerifierMetrics struct {
	votesStored      prometheus.Counter
	votesNotAccepted prometheus.Counter
	votesRejected    *prometheus.CounterVec
	thresholdNotMet  prometheus.Counter
	tasksFinalized   prometheus.Counter
	operatorsFlagged prometheus.Counter
	openTasks        prometheus.Gauge
}

// NewVerifierMetrics registers the verifier metrics on the given registry.
func NewVerifierMetrics(registry *prometheus.Registry) *VerifierMetrics {
	m := &VerifierMetrics{
		votesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attestx_votes_stored_total",
			Help: "The number of operator votes recorded",
		}),
		votesNotAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attestx_votes_not_accepted_total",
			Help: "The number of votes that raced an already finalized or expired task",
		}),
		votesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attestx_votes_rejected_total",
			Help: "The number of rejected vote submissions by reason",
		}, []string{"reason"}),
		thresholdNotMet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attestx_threshold_not_met_total",
			Help: "The number of tally runs where weighted agreement fell short",
		}),
		tasksFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attestx_tasks_finalized_total",
			Help: "The number of tasks finalized with an accepted result",
		}),
		operatorsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attestx_operators_flagged_total",
			Help: "The number of operators flagged as slashable outliers",
		}),
		openTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attestx_open_tasks",
			Help: "The number of tasks still open past their expiry deadline included",
		}),
	}
	registry.MustRegister(
		m.votesStored,
		m.votesNotAccepted,
		m.votesRejected,
		m.thresholdNotMet,
		m.tasksFinalized,
		m.operatorsFlagged,
		m.openTasks,
	)
	return m
}

func (m *VerifierMetrics) IncVotesStored() {
	if m == nil {
		return
	}
	m.votesStored.Inc()
}

func (m *VerifierMetrics) IncVotesNotAccepted() {
	if m == nil {
		return
	}
	m.votesNotAccepted.Inc()
}

func (m *VerifierMetrics) IncVotesRejected(reason string) {
	if m == nil {
		return
	}
	m.votesRejected.WithLabelValues(reason).Inc()
}

func (m *VerifierMetrics) IncThresholdNotMet() {
	if m == nil {
		return
	}
	m.thresholdNotMet.Inc()
}

func (m *VerifierMetrics) IncTasksFinalized() {
	if m == nil {
		return
	}
	m.tasksFinalized.Inc()
}

func (m *VerifierMetrics) IncOperatorsFlagged() {
	if m == nil {
		return
	}
	m.operatorsFlagged.Inc()
}

func (m *VerifierMetrics) SetOpenTasks(count int) {
	if m == nil {
		return
	}
	m.openTasks.Set(float64(count))
}
