// Package metrics keeps engine counters on a private prometheus
// registry. Nothing here opens a socket; the only export path is a
// node-exporter style textfile written on demand.
package metrics

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bufgate/bufgate/internal/model"
)

var (
	registerOnce sync.Once
	registry     *prometheus.Registry

	passTotal     *prometheus.CounterVec
	failTotal     *prometheus.CounterVec
	fastPathTotal prometheus.Counter
	costObserved  prometheus.Histogram
	payloadBytes  prometheus.Histogram
	filesTotal    *prometheus.CounterVec
)

func register() {
	registerOnce.Do(func() {
		registry = prometheus.NewRegistry()
		factory := promauto.With(registry)

		passTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bufgate",
				Subsystem: "gate",
				Name:      "pass_total",
				Help:      "Validations that committed trust flags.",
			},
			[]string{"zone"},
		)
		failTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bufgate",
				Subsystem: "gate",
				Name:      "fail_total",
				Help:      "Validations rejected, by error code.",
			},
			[]string{"code"},
		)
		fastPathTotal = factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bufgate",
				Subsystem: "gate",
				Name:      "fast_path_total",
				Help:      "Revalidations satisfied from stored state.",
			},
		)
		costObserved = factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bufgate",
				Subsystem: "gate",
				Name:      "cost",
				Help:      "Governance cost of committed validations.",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		)
		payloadBytes = factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bufgate",
				Subsystem: "gate",
				Name:      "payload_bytes",
				Help:      "Payload sizes seen by the gate.",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
			},
		)
		filesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bufgate",
				Subsystem: "daemon",
				Name:      "files_total",
				Help:      "Inbox files processed, by result.",
			},
			[]string{"result"},
		)
	})
}

// RecordPass counts a committed validation.
func RecordPass(z model.Zone, cost float64, size int) {
	register()
	passTotal.WithLabelValues(z.String()).Inc()
	costObserved.Observe(cost)
	payloadBytes.Observe(float64(size))
}

// RecordFail counts a rejected validation under its error code.
func RecordFail(code model.Code) {
	register()
	failTotal.WithLabelValues(code.String()).Inc()
}

// RecordFastPath counts a revalidation that skipped the full pipeline.
func RecordFastPath() {
	register()
	fastPathTotal.Inc()
}

// RecordFile counts one watched-inbox file under accepted, rejected
// or error.
func RecordFile(result string) {
	register()
	filesTotal.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry to path in the prometheus text
// format, atomically. An empty path disables the export.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	register()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, registry)
}
