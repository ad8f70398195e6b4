package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver) error

// WithTimeout sets the per-receive socket timeout used by Resolve. Default: 2 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) error {
		if timeout <= 0 {
			return &dnserrors.ValidationError{Field: "timeout", Value: timeout, Message: "must be positive"}
		}
		r.timeout = timeout
		return nil
	}
}

// WithLogger overrides the resolver's default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Resolver) error {
		r.logger = l
		return nil
	}
}

// WithMetricsRegisterer registers the resolver's Prometheus metrics on reg
// instead of leaving them unregistered (the default, used in tests that
// don't want to pollute prometheus.DefaultRegisterer).
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(r *Resolver) error {
		r.registerer = reg
		return nil
	}
}
