package discoverer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// Option is a functional option for configuring a Discoverer.
type Option func(*Discoverer) error

// WithRetransmitTimeout sets the per-receive deadline used between
// retransmits of an in-flight query. Default: 1 second.
func WithRetransmitTimeout(d time.Duration) Option {
	return func(disc *Discoverer) error {
		if d <= 0 {
			return &dnserrors.ValidationError{Field: "retransmitTimeout", Value: d, Message: "must be positive"}
		}
		disc.retransmitTimeout = d
		return nil
	}
}

// WithDomain overrides the browsed domain (default "local.").
func WithDomain(domain string) Option {
	return func(disc *Discoverer) error {
		disc.domainStr = domain
		return nil
	}
}

// WithLogger overrides the discoverer's default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(disc *Discoverer) error {
		disc.logger = l
		return nil
	}
}

// WithMetricsRegisterer registers the discoverer's Prometheus metrics on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(disc *Discoverer) error {
		disc.registerer = reg
		return nil
	}
}
