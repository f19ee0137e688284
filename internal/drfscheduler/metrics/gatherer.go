package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/component-base/metrics/legacyregistry"
	// Registers client-go request latency and result metrics with the legacy registry.
	_ "k8s.io/component-base/metrics/prometheus/restclient"
)

// GetMetricsGatherer returns a gatherer covering both the default Prometheus registry and
// the Kubernetes component-base registry client-go reports to.
func GetMetricsGatherer() prometheus.Gatherer {
	// kubernetes component-base metric registry includes GO & Process collector, unregistering them in
	// DefaultRegisterer prevents error from duplicate metrics
	prometheus.DefaultRegisterer.Unregister(prometheus.NewGoCollector())
	prometheus.DefaultRegisterer.Unregister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return prometheus.Gatherers{legacyregistry.DefaultGatherer, prometheus.DefaultGatherer}
}
