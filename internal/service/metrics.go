package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Revocation outcomes recorded in revocations_total.
const (
	RevocationRevoked     = "revoked"
	RevocationAlreadyGone = "already_gone"
	RevocationFailed      = "failed"
	RevocationUpstream    = "upstream_unavailable"
)

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	grantsIssued prometheus.Counter
	revocations  *prometheus.CounterVec
	countdowns   prometheus.Gauge
}

// NewMetrics registers the domain metrics with reg. A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		grantsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "grants_issued_total",
			Help: "Total number of access grants issued.",
		}),
		revocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "revocations_total",
			Help: "Total number of revocation attempts by result.",
		}, []string{"result"}),
		countdowns: f.NewGauge(prometheus.GaugeOpts{
			Name: "countdowns_running",
			Help: "Number of grant countdowns currently running.",
		}),
	}
}

func (m *Metrics) GrantIssued() {
	if m == nil {
		return
	}
	m.grantsIssued.Inc()
}

func (m *Metrics) Revocation(result string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(result).Inc()
}

// CountdownsRunning matches the expiry.WithObserver callback.
func (m *Metrics) CountdownsRunning(n int) {
	if m == nil {
		return
	}
	m.countdowns.Set(float64(n))
}
