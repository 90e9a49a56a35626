package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldsync/ormgen/orm"
)

// Counter is a Logger that counts statements by verb in a Prometheus
// counter vector. Register Collector() with a registry to export it.
type Counter struct {
	vec *prometheus.CounterVec
}

// NewCounter returns a Counter named "<namespace>_statements_total".
func NewCounter(namespace string) *Counter {
	return &Counter{
		vec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "SQL statements issued through the orm, by leading keyword.",
		}, []string{"verb"}),
	}
}

func (c *Counter) Log(_ context.Context, query string, _ ...any) {
	c.vec.WithLabelValues(Verb(query)).Inc()
}

var _ orm.Logger = (*Counter)(nil)

// Collector returns the underlying counter vector.
func (c *Counter) Collector() *prometheus.CounterVec { return c.vec }
