package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "nxstools"

	StatusOK    = "ok"
	StatusError = "error"
)

var (
	registry = prometheus.NewRegistry()

	documentsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_stored_total",
			Help:      "A counter metric to measure the number of datasource and component documents stored.",
		},
		[]string{"kind", "sink"},
	)

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "A counter metric to measure device proxy calls.",
		},
		[]string{"operation", "status"},
	)

	remoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "A histogram metric to measure device proxy call durations.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)
)

func init() {
	registry.MustRegister(documentsStored, remoteCalls, remoteCallDuration)
}

// DocumentStored increments the stored documents counter.
func DocumentStored(kind, sink string) {
	documentsStored.WithLabelValues(kind, sink).Inc()
}

// RemoteCall records the outcome and duration of one device proxy call.
func RemoteCall(operation string, started time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}

	remoteCalls.WithLabelValues(operation, status).Inc()
	remoteCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Registry exposes the metrics registry, mostly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// WriteTextfile dumps all metrics in the text exposition format,
// for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return errors.Wrap(err, "failed to write metrics textfile")
	}

	return nil
}
