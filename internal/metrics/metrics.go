// Package metrics provides Prometheus instrumentation for the planner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metric instances.
type Registry struct {
	PlansGenerated    prometheus.Counter
	TasksCompleted    *prometheus.CounterVec
	SuccessorsCreated prometheus.Counter
	Conflicts         prometheus.Gauge
	ReportsSent       *prometheus.CounterVec
	StoreOperations   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewRegistry registers every metric on reg. A nil reg gets a private registry.
func NewRegistry(reg *prometheus.Registry) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Registry{
		PlansGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pawpal",
			Name:      "plans_generated_total",
			Help:      "Total number of plans generated",
		}),
		TasksCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawpal",
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks marked complete",
		}, []string{"recurrence"}),
		SuccessorsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pawpal",
			Name:      "successors_created_total",
			Help:      "Total number of recurring successors appended",
		}),
		Conflicts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pawpal",
			Name:      "conflicts",
			Help:      "Number of conflicting task pairs at the last check",
		}),
		ReportsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawpal",
			Name:      "reports_sent_total",
			Help:      "Daily reports delivered, by status",
		}, []string{"status"}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawpal",
			Name:      "store_operations_total",
			Help:      "Persistence operations, by operation and status",
		}, []string{"op", "status"}),
		gatherer: reg,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ObserveStore counts one store operation.
func (r *Registry) ObserveStore(op string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.StoreOperations.WithLabelValues(op, status).Inc()
}
