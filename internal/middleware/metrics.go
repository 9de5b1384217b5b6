package middleware

import (
	"sync"

	"yatube/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics collector. Collectors
// register on the default Prometheus registry, so construction happens once.
func InitMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(observability.ServiceName)
	})
	return prom
}
