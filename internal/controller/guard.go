package controller

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var guardedNoopsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "list_row_guarded_noops_total",
		Help: "Mutations dropped because the row already had one in flight",
	},
	[]string{"list"},
)

// rowGuard is the per-row in-flight flag. While a mutation for a product id
// is pending, further mutations for the same id are no-ops; unrelated rows
// proceed concurrently.
type rowGuard struct {
	list     string
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newRowGuard(list string) *rowGuard {
	return &rowGuard{
		list:     list,
		inFlight: make(map[string]struct{}),
	}
}

// tryAcquire claims the row. It returns false when a mutation for the id is
// already in flight.
func (g *rowGuard) tryAcquire(productID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[productID]; busy {
		guardedNoopsTotal.WithLabelValues(g.list).Inc()
		return false
	}
	g.inFlight[productID] = struct{}{}
	return true
}

// release frees the row once its mutation settled, success or failure.
func (g *rowGuard) release(productID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, productID)
}
