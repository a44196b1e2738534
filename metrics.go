package converge

import "github.com/prometheus/client_golang/prometheus"

var registerOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "converge_register_ops_total",
	Help: "Local last-write-wins register operations by kind.",
}, []string{"op"})

var setOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "converge_set_ops_total",
	Help: "Local observed-remove set operations by kind.",
}, []string{"op"})

var mergeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "converge_merges_total",
	Help: "Remote states merged in, by CRDT type.",
}, []string{"type"})

// Collectors returns the package's metrics for registration; the core
// never registers anything itself, the embedding application owns the
// registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{registerOps, setOps, mergeCount}
}
