package debounce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// supersededTotal counts tasks replaced before they ran.
	supersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "formsync",
		Subsystem: "debounce",
		Name:      "superseded_total",
		Help:      "Total debounced tasks superseded by a later schedule",
	})

	// firedTotal counts tasks that ran, flushed ones included.
	firedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "formsync",
		Subsystem: "debounce",
		Name:      "fired_total",
		Help:      "Total debounced tasks executed",
	})
)
