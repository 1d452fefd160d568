package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "hubdriver"

// metrics holds the engine's Prometheus collectors.
type metrics struct {
	registry *prometheus.Registry

	framesReceived  *prometheus.CounterVec
	framesMalformed prometheus.Counter
	responses       *prometheus.CounterVec
	events          *prometheus.CounterVec
	requestTimeouts *prometheus.CounterVec
}

// newMetrics registers the engine collectors. Gauges read live state from
// the server, so nothing has to keep them in sync.
func newMetrics(reg *prometheus.Registry, s *Server) (*metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &metrics{
		registry: reg,
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Frames received from hub sessions, by kind.",
		}, []string{"kind"}),
		framesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_malformed_total",
			Help:      "Frames dropped because they could not be parsed.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "responses_total",
			Help:      "Responses sent to hub sessions, by status code.",
		}, []string{"code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_sent_total",
			Help:      "Event frames queued for hub sessions, by message.",
		}, []string{"msg"}),
		requestTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outbound_request_timeouts_total",
			Help:      "Driver-initiated requests that got no response in time.",
		}, []string{"msg"}),
	}

	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions",
			Help:      "Connected hub sessions.",
		}, func() float64 { return float64(s.sessions.Count()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "outbound_requests_pending",
			Help:      "Driver-initiated requests awaiting a response.",
		}, func() float64 { return float64(s.requests.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "entities",
			Help:        "Entities per pool.",
			ConstLabels: prometheus.Labels{"pool": "available"},
		}, func() float64 { return float64(s.available.Count()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "entities",
			Help:        "Entities per pool.",
			ConstLabels: prometheus.Labels{"pool": "configured"},
		}, func() float64 { return float64(s.configured.Count()) }),
	}

	for _, c := range append([]prometheus.Collector{
		m.framesReceived, m.framesMalformed, m.responses, m.events, m.requestTimeouts,
	}, gauges...) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) frameReceived(kind string) {
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *metrics) frameMalformed() {
	m.framesMalformed.Inc()
}

func (m *metrics) responseSent(code int) {
	m.responses.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *metrics) eventSent(msg string, recipients int) {
	m.events.WithLabelValues(msg).Add(float64(recipients))
}

func (m *metrics) requestTimedOut(msg string) {
	m.requestTimeouts.WithLabelValues(msg).Inc()
}

// handler serves the registry in the Prometheus exposition format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
