// Package metrics counts decoding progress with Prometheus collectors on a
// private registry.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"openfms/fitstream/internal/decoder"
	"openfms/fitstream/internal/devices"
	"openfms/fitstream/internal/protocol"
	"openfms/fitstream/internal/stream"
)

const namespace = "fitstream"

// Error classes used as the "class" label
const (
	ClassStructural = "structural"
	ClassField      = "field"
	ClassSource     = "source"
	ClassOther      = "other"
)

var _ stream.Observer = (*Metrics)(nil)

// Metrics holds the collectors of one batch run
type Metrics struct {
	registry *prometheus.Registry

	bytesRead  prometheus.Counter
	chunksRead prometheus.Counter
	records    *prometheus.CounterVec // by message kind
	errors     *prometheus.CounterVec // by error class
	devices    *prometheus.CounterVec // by identity scheme
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "bytes_read_total",
			Help:      "Total number of bytes read from inputs",
		}),
		chunksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_read_total",
			Help:      "Total number of non-empty reads from inputs",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "records_total",
			Help:      "Total number of decoded records",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "errors_total",
			Help:      "Total number of decoding errors",
		}, []string{"class"}), // class: structural, field, source, other
		devices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "devices",
			Name:      "resolved_total",
			Help:      "Total number of resolved devices",
		}, []string{"scheme"}),
	}

	m.registry.MustRegister(m.bytesRead, m.chunksRead, m.records, m.errors, m.devices)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ChunkRead(n int) {
	m.chunksRead.Inc()
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) RecordDecoded(kind protocol.MesgNum) {
	m.records.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) DecodeFailed(err error) {
	m.errors.WithLabelValues(ErrorClass(err)).Inc()
}

// ObserveDevices counts the creator and every resolved device.
func (m *Metrics) ObserveDevices(res devices.Result) {
	if res.Creator != nil && res.Creator.Len() > 0 {
		m.devices.WithLabelValues(string(devices.SchemeCreator)).Inc()
	}
	for scheme, n := range res.CountByScheme() {
		m.devices.WithLabelValues(string(scheme)).Add(float64(n))
	}
}

// WriteTextfile writes all metrics in the text exposition format, for
// pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

// ErrorClass maps an error returned by the stream to a label value.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, stream.ErrSourceRead):
		return ClassSource
	case errors.Is(err, protocol.ErrFieldDecode):
		return ClassField
	case errors.Is(err, protocol.ErrStructural), errors.Is(err, decoder.ErrFailed):
		return ClassStructural
	}
	return ClassOther
}
