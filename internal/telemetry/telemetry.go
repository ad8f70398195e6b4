// Package telemetry provides the structured logging and metrics
// instrumentation shared by the resolver, advertiser, and discoverer roles.
// Logging uses logrus (WithFields-style structured entries); metrics use
// the plain prometheus client_golang registry (no OpenTelemetry bridge —
// see DESIGN.md for why this library scopes down from the OTel-plus-
// Prometheus stack a sibling example pulls in).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Telemetry bundles a logger and a metrics registry for one role instance
// (one resolver, one advertiser, one discoverer). The zero value is not
// usable; construct with New.
type Telemetry struct {
	Log *logrus.Logger

	queriesTotal   *prometheus.CounterVec
	responsesTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	packetLatency  prometheus.Histogram
}

// Option configures a Telemetry at construction time.
type Option func(*Telemetry)

// WithLogger overrides the default logger (logrus.New() at Info level).
func WithLogger(l *logrus.Logger) Option {
	return func(t *Telemetry) { t.Log = l }
}

// New constructs a Telemetry, registering its metrics on reg under the
// given role name ("resolver", "advertiser", "discoverer"), which becomes
// the "role" constant label on every instrument. A nil reg skips metrics
// registration entirely (Record* calls become no-ops), which callers use
// in tests that don't want to pollute prometheus.DefaultRegisterer.
func New(role string, reg prometheus.Registerer, opts ...Option) *Telemetry {
	t := &Telemetry{Log: defaultLogger()}
	for _, opt := range opts {
		opt(t)
	}

	if reg == nil {
		return t
	}

	labels := prometheus.Labels{"role": role}
	t.queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dnssd",
		Name:        "queries_total",
		Help:        "Queries sent or received, by record type.",
		ConstLabels: labels,
	}, []string{"qtype"})
	t.responsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dnssd",
		Name:        "responses_total",
		Help:        "Responses sent or received, by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	t.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dnssd",
		Name:        "errors_total",
		Help:        "Decode/encode/network errors encountered, by kind.",
		ConstLabels: labels,
	}, []string{"kind"})
	t.packetLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "dnssd",
		Name:        "packet_handling_seconds",
		Help:        "Time spent handling one inbound datagram.",
		ConstLabels: labels,
		Buckets:     prometheus.DefBuckets,
	})

	reg.MustRegister(t.queriesTotal, t.responsesTotal, t.errorsTotal, t.packetLatency)
	return t
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// RecordQuery increments the query counter for the given record-type mnemonic.
func (t *Telemetry) RecordQuery(qtype string) {
	if t.queriesTotal == nil {
		return
	}
	t.queriesTotal.WithLabelValues(qtype).Inc()
}

// RecordResponse increments the response counter for the given outcome
// ("answered", "no_match", "truncated").
func (t *Telemetry) RecordResponse(outcome string) {
	if t.responsesTotal == nil {
		return
	}
	t.responsesTotal.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter for the given error kind.
func (t *Telemetry) RecordError(kind string) {
	if t.errorsTotal == nil {
		return
	}
	t.errorsTotal.WithLabelValues(kind).Inc()
}

// ObservePacketLatency records how long one inbound datagram took to handle.
func (t *Telemetry) ObservePacketLatency(seconds float64) {
	if t.packetLatency == nil {
		return
	}
	t.packetLatency.Observe(seconds)
}

// Fields is a re-export of logrus.Fields so callers of this package don't
// need their own import of logrus purely to build a structured log entry.
type Fields = logrus.Fields
