package receiver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics counts received uploads. Every server owns its registry so several
// receivers can run in one process.
type metrics struct {
	registry *prometheus.Registry

	uploads  *prometheus.CounterVec
	rejected prometheus.Counter
	parts    *prometheus.CounterVec
	bytes    prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "receiver",
			Name:      "uploads_total",
			Help:      "Uploads read to completion, by request method.",
		}, []string{"method"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "receiver",
			Name:      "rejected_uploads_total",
			Help:      "Uploads whose body could not be read.",
		}),
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "receiver",
			Name:      "parts_total",
			Help:      "Form-data parts received, by kind (file or text).",
		}, []string{"kind"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "receiver",
			Name:      "received_bytes_total",
			Help:      "Request body bytes read, including multipart framing.",
		}),
	}
	m.registry.MustRegister(m.uploads, m.rejected, m.parts, m.bytes)
	return m
}

func (m *metrics) recordUpload(u Upload) {
	m.uploads.WithLabelValues(u.Method).Inc()
	m.bytes.Add(float64(u.Size))
	for _, p := range u.Parts {
		kind := "text"
		if p.IsFile() {
			kind = "file"
		}
		m.parts.WithLabelValues(kind).Inc()
	}
}

func (m *metrics) recordRejected(size int64) {
	m.rejected.Inc()
	m.bytes.Add(float64(size))
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
