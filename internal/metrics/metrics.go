// Package metrics exposes optional Prometheus instrumentation for a
// run, enabled only when RunConfig.MetricsAddr is set. It is grounded
// on the teacher's namespaced GaugeVec/CounterVec pattern for
// reconciler progress, generalized here to a rolling-upgrade's
// per-node progress.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "pve_upgrade"
)

// Recorder wraps the gauges/counters one run populates.
type Recorder struct {
	registry *prometheus.Registry

	nodesTotal          prometheus.Gauge
	nodesCompleted      prometheus.Counter
	currentNodeState    *prometheus.GaugeVec
	fanoutFailuresTotal prometheus.Counter
}

// stateValue maps a node's lifecycle state to the gauge value exposed
// under pve_upgrade_current_node_state for that node's label.
var stateValue = map[string]float64{
	"running": 1,
	"done":    2,
	"failed":  -1,
}

// New constructs a Recorder registered against a fresh registry (not
// the global default, so multiple runs in the same process — e.g. in
// tests — never collide).
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return &Recorder{
		registry: reg,
		nodesTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Number of nodes discovered for this run.",
		}),
		nodesCompleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_completed",
			Help:      "Number of nodes that finished upgrading successfully.",
		}),
		currentNodeState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_node_state",
			Help:      "Lifecycle state of the node currently being upgraded (1=running, 2=done, -1=failed).",
		}, []string{"node"}),
		fanoutFailuresTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_failures_total",
			Help:      "Cumulative count of fan-out precondition failures observed.",
		}),
	}
}

// SetNodesTotal records the discovered cluster size.
func (r *Recorder) SetNodesTotal(n int) { r.nodesTotal.Set(float64(n)) }

// IncNodesCompleted increments the completed-node counter.
func (r *Recorder) IncNodesCompleted() { r.nodesCompleted.Inc() }

// SetCurrentNodeState records hostname's lifecycle state.
func (r *Recorder) SetCurrentNodeState(hostname, state string) {
	r.currentNodeState.WithLabelValues(hostname).Set(stateValue[state])
}

// AddFanoutFailures adds n to the cumulative fan-out failure count.
func (r *Recorder) AddFanoutFailures(n int) { r.fanoutFailuresTotal.Add(float64(n)) }

// Serve starts an HTTP server exposing /metrics on addr until ctx is
// cancelled. It runs in the caller's goroutine; callers that want this
// backgrounded should call it with `go`.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
