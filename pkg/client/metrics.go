package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	outcomeOK         = "ok"
	outcomeProtocol   = "protocol_error"
	outcomeNoResponse = "no_response"
)

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Latency         *prometheus.HistogramVec
	Subscriptions   prometheus.Gauge
	FramesDelivered prometheus.Counter
	FramesDropped   prometheus.Counter
	DecodeWarnings  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mp_client_requests_total",
			Help: "Requests sent to the MP server by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mp_client_request_duration_seconds",
			Help:    "Round trip time of MP server requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"endpoint"}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mp_client_stream_subscriptions",
			Help: "Test points with an active stream subscription.",
		}),
		FramesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mp_client_frames_delivered_total",
			Help: "Polled frame batches delivered to a handler.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mp_client_frames_dropped_total",
			Help: "Polled frame batches without a subscription.",
		}),
		DecodeWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mp_client_decode_warnings_total",
			Help: "Corrupt binary payloads decoded in permissive mode.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.Requests, m.Latency, m.Subscriptions, m.FramesDelivered, m.FramesDropped, m.DecodeWarnings,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(endpoint, outcome string, d time.Duration) {
	m.Requests.WithLabelValues(endpoint, outcome).Inc()
	m.Latency.WithLabelValues(endpoint).Observe(d.Seconds())
}
