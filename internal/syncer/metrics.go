package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess   = "success"
	resultError     = "error"
	resultRestored  = "restored"
	resultBootstrap = "bootstrap"
)

// Metrics holds the sync counters
type Metrics struct {
	Pushes   *prometheus.CounterVec
	Restores *prometheus.CounterVec
	Dropped  prometheus.Counter
}

// NewMetrics registers the sync counters with reg. A nil reg gets a private
// registry so several orchestrators can coexist in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Pushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "puzzlepals_sync_pushes_total",
			Help: "Snapshot pushes to the remote store by result",
		}, []string{"result"}),
		Restores: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "puzzlepals_sync_restores_total",
			Help: "Restores from the remote store by result",
		}, []string{"result"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "puzzlepals_sync_dropped_total",
			Help: "Sync jobs dropped because the queue was full",
		}),
	}
}
