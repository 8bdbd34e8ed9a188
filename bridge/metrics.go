package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts sessions and deferred jobs. A nil *Metrics records nothing.
type Metrics struct {
	sessions        *prometheus.CounterVec
	aborts          *prometheus.CounterVec
	jobs            *prometheus.CounterVec
	sessionDuration prometheus.Histogram
}

// NewMetrics creates the bridge collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arenabridge",
			Name:      "sessions_total",
			Help:      "Completed sessions by command and response status.",
		}, []string{"command", "status"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arenabridge",
			Name:      "session_aborts_total",
			Help:      "Sessions abandoned before a response was written.",
		}, []string{"stage"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arenabridge",
			Name:      "deferred_jobs_total",
			Help:      "Deferred NEW_TASK jobs by result.",
		}, []string{"result"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arenabridge",
			Name:      "session_duration_seconds",
			Help:      "Time from accept to close.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.aborts, m.jobs, m.sessionDuration)
	}
	return m
}

func (m *Metrics) session(cmd, status string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(cmd, status).Inc()
}

func (m *Metrics) abort(stage string) {
	if m == nil {
		return
	}
	m.aborts.WithLabelValues(stage).Inc()
}

func (m *Metrics) job(result string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(result).Inc()
}

func (m *Metrics) observe(start time.Time) {
	if m == nil {
		return
	}
	m.sessionDuration.Observe(time.Since(start).Seconds())
}
