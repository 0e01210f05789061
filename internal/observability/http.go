package observability

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
)

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the fiber request metrics middleware. Its collectors
// live in the default registry, which accepts them only once per process, so
// every server in the process shares one instance.
func HTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}
