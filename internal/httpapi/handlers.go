package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
)

// RegistrySnapshot exposes the minimal lobby-registry surface the ops
// handlers need, named so tests can substitute a fake registry.
type RegistrySnapshot interface {
	All() []*lobby.Lobby
}

// Options configures a HandlerSet.
type Options struct {
	Logger    *logging.Logger
	Registry  RegistrySnapshot
	Metrics   *Metrics
	Gatherer  prometheus.Gatherer
	StartedAt time.Time
}

// HandlerSet bundles the server's operational HTTP handlers: liveness,
// readiness, and Prometheus metrics.
type HandlerSet struct {
	logger    *logging.Logger
	registry  RegistrySnapshot
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	startedAt time.Time
}

// NewHandlerSet constructs a HandlerSet from opts.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return &HandlerSet{
		logger:    logger,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		startedAt: startedAt,
	}
}

// Register attaches every handler to mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// LivenessHandler reports that the process is up.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("alive\n"))
	}
}

// ReadinessHandler reports the live lobby/client counts and refreshes
// the registry gauges, since scraping readiness is a convenient,
// low-frequency point to resample them.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyCount, clientCount := 0, 0
		if h.registry != nil {
			lobbies := h.registry.All()
			lobbyCount = len(lobbies)
			for _, l := range lobbies {
				clientCount += l.OccupantCount()
			}
		}
		if h.metrics != nil {
			h.metrics.ObserveRegistry(lobbyCount, clientCount)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	}
}
