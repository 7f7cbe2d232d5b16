package storage

import "github.com/prometheus/client_golang/prometheus"

var (
	storageReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "argosbind_storage",
		Name:      "reads_total",
		Help:      "Total number of read operations.",
	}, []string{"backend"})

	storageWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "argosbind_storage",
		Name:      "writes_total",
		Help:      "Total number of write and delete operations.",
	}, []string{"backend"})

	storageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "argosbind_storage",
		Name:      "errors_total",
		Help:      "Total number of failed operations.",
	}, []string{"backend"})
)

func init() {
	prometheus.MustRegister(storageReads, storageWrites, storageErrors)
}
