package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespaceVault = "custody_vault"

	subsystemLedger = "ledger"
	subsystemChain  = "chain"

	// LabelOperation names the vault operation.
	LabelOperation = "operation"
	// LabelResult is "ok" or the rejection reason.
	LabelResult = "result"
	// LabelStatus is the transaction outcome.
	LabelStatus = "status"
)

// Collector holds the service's prometheus collectors on a private registry so
// several instances (tests, isolated deployments) never collide.
type Collector struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	notifyFailure prometheus.Counter
}

// New builds a collector with Go runtime and process metrics registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "operations_total",
			Namespace: namespaceVault,
			Subsystem: subsystemLedger,
			Help:      "the number of vault operations by outcome",
		}, []string{LabelOperation, LabelResult}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "transactions_total",
			Namespace: namespaceVault,
			Subsystem: subsystemChain,
			Help:      "the number of top-level transactions by status",
		}, []string{LabelStatus}),
		notifyFailure: factory.NewCounter(prometheus.CounterOpts{
			Name:      "notification_failures_total",
			Namespace: namespaceVault,
			Subsystem: subsystemChain,
			Help:      "the number of committed logs that could not be published",
		}),
	}
}

// VaultOperation counts one vault operation outcome.
func (c *Collector) VaultOperation(operation, result string) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(operation, result).Inc()
}

// Transaction counts one top-level transaction outcome.
func (c *Collector) Transaction(status string) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(status).Inc()
}

// NotificationFailed counts a log that failed to publish.
func (c *Collector) NotificationFailed() {
	if c == nil {
		return
	}
	c.notifyFailure.Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
