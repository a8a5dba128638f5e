package zring

import (
	"fmt"

	"github.com/rcrowley/go-metrics"
)

// queueMetrics counts the work one reconciler direction performed. The
// counters land in the default registry so the stats exporters pick them up
// without extra wiring.
type queueMetrics struct {
	sent      metrics.Counter
	reclaimed metrics.Counter
	imported  metrics.Counter
	refilled  metrics.Counter
	doorbells metrics.Counter
	reinits   metrics.Counter
}

func newQueueMetrics(name string) *queueMetrics {
	gen := func(what string) metrics.Counter {
		return metrics.GetOrRegisterCounter(fmt.Sprintf("ring.%s.%s", name, what), nil)
	}
	return &queueMetrics{
		sent:      gen("sent"),
		reclaimed: gen("reclaimed"),
		imported:  gen("imported"),
		refilled:  gen("refilled"),
		doorbells: gen("doorbells"),
		reinits:   gen("reinits"),
	}
}
