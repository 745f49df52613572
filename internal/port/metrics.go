package port

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts port operations.
	// Labels: op (get, put), result (ok, miss, error)
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formsync",
		Subsystem: "port",
		Name:      "operations_total",
		Help:      "Total persistence port operations by result",
	}, []string{"op", "result"})

	// operationDuration measures port operation latency.
	// Labels: op (get, put)
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "formsync",
		Subsystem: "port",
		Name:      "operation_duration_seconds",
		Help:      "Persistence port operation latency in seconds",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 1.5, 2, 3, 5},
	}, []string{"op"})
)

// Instrumented wraps a Port and records operation counts and latency.
type Instrumented struct {
	next Port
}

// Instrument wraps p with metrics.
func Instrument(p Port) *Instrumented {
	return &Instrumented{next: p}
}

// Put implements Port.
func (i *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Put(ctx, key, value)
	operationDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues("put", resultLabel(err, true)).Inc()
	return err
}

// Get implements Port.
func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key)
	operationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues("get", resultLabel(err, v != nil)).Inc()
	return v, err
}

func resultLabel(err error, found bool) string {
	switch {
	case err != nil:
		return "error"
	case !found:
		return "miss"
	default:
		return "ok"
	}
}

// OperationsTotal exposes the operation counter for tests and embedding
// applications that register their own collectors.
func OperationsTotal() *prometheus.CounterVec {
	return operationsTotal
}
