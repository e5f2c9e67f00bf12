// Package diag exposes the node's read-only health and metrics surface:
// a liveness probe and a Prometheus scrape endpoint. It carries no part of
// an RPC/JSON surface — just the operational observability the rest of the
// node needs, mounted on a chi router.
package diag

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the process's Prometheus collectors. One Registry is shared
// by the block processor, gossip network and bootstrap engine so all three
// publish to the same /metrics endpoint.
type Registry struct {
	reg *prometheus.Registry

	AdmissionTotal *prometheus.CounterVec
	QueueDepth     prometheus.Gauge

	PeerCount prometheus.Gauge

	BootstrapConnections     prometheus.Gauge
	BootstrapBlocksPerSecond prometheus.Gauge
	BootstrapPullsRemaining  prometheus.Gauge

	ElectionsActive  prometheus.Gauge
	ElectionsConfirmed prometheus.Counter
}

// NewRegistry constructs and registers every collector the node publishes.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		AdmissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mikron_admission_total",
			Help: "Block admission outcomes by result code",
		}, []string{"code"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_processor_queue_depth",
			Help: "Number of blocks currently queued for admission",
		}),
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_peer_count",
			Help: "Number of peers in the gossip peer table",
		}),
		BootstrapConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_bootstrap_connections",
			Help: "Active bootstrap_client connections in the current attempt",
		}),
		BootstrapBlocksPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_bootstrap_blocks_per_second",
			Help: "Aggregate pull throughput of the current bootstrap attempt",
		}),
		BootstrapPullsRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_bootstrap_pulls_remaining",
			Help: "Pull queue depth of the current bootstrap attempt",
		}),
		ElectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mikron_elections_active",
			Help: "Number of unresolved active elections",
		}),
		ElectionsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mikron_elections_confirmed_total",
			Help: "Total elections that reached quorum confirmation",
		}),
	}

	reg.MustRegister(
		r.AdmissionTotal,
		r.QueueDepth,
		r.PeerCount,
		r.BootstrapConnections,
		r.BootstrapBlocksPerSecond,
		r.BootstrapPullsRemaining,
		r.ElectionsActive,
		r.ElectionsConfirmed,
	)
	return r
}

// HealthFunc reports whether the node considers itself live. Returning
// false makes /healthz answer 503, matching a standard liveness-probe
// contract.
type HealthFunc func() bool

// Server returns an *http.Server exposing /healthz and /metrics on addr.
// It does not start listening; callers manage the Serve/Shutdown lifecycle.
func (r *Registry) Server(addr string, healthy HealthFunc) *http.Server {
	mux := chi.NewRouter()
	mux.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if healthy != nil && !healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

// Shutdown gracefully stops a server returned by Server.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
