// Package httpapi implements the server's operational HTTP surface:
// liveness/readiness probes, Prometheus metrics, and the first-contact
// rate limiter built on golang.org/x/time/rate's token bucket.
package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every Prometheus collector the server publishes.
// Constructed once at startup and threaded through wherever a tick or
// connection event needs to record against it.
type Metrics struct {
	ActiveLobbies         prometheus.Gauge
	ConnectedClients      prometheus.Gauge
	TicksProcessed        prometheus.Counter
	OutboxBytes           *prometheus.GaugeVec
	FirstContactsRejected prometheus.Counter
}

// NewMetrics registers every collector against reg. Passing a fresh
// prometheus.NewRegistry() (rather than the global default) keeps
// repeated test construction from panicking on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveLobbies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tank_active_lobbies",
			Help: "Current number of lobbies tracked by the registry.",
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tank_connected_clients",
			Help: "Current number of connected players and spectators across all lobbies.",
		}),
		TicksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tank_ticks_processed_total",
			Help: "Total simulation ticks processed across all lobbies.",
		}),
		OutboxBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tank_lobby_outbox_bytes",
			Help: "Bytes written to client channels by the last publish pass for a lobby.",
		}, []string{"lobby"}),
		FirstContactsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "tank_first_contacts_rejected_total",
			Help: "First-contact handshakes rejected by the rate limiter.",
		}),
	}
}

// ObserveRegistry snapshots the live lobby registry into the gauge
// collectors. Called by the readiness handler on each /readyz request,
// not once per simulation tick, since lobby/client counts change far
// less often than the tick rate.
func (m *Metrics) ObserveRegistry(lobbyCount, clientCount int) {
	m.ActiveLobbies.Set(float64(lobbyCount))
	m.ConnectedClients.Set(float64(clientCount))
}

// RecordTick increments the processed-tick counter, called once per
// lobby per Tick.
func (m *Metrics) RecordTick() {
	m.TicksProcessed.Inc()
}

// RecordOutboxBytes records the most recent publish pass's payload size
// for one named lobby.
func (m *Metrics) RecordOutboxBytes(lobbyName string, n int) {
	m.OutboxBytes.WithLabelValues(lobbyName).Set(float64(n))
}

// RecordFirstContactRejected increments the rate-limit rejection counter.
func (m *Metrics) RecordFirstContactRejected() {
	m.FirstContactsRejected.Inc()
}
