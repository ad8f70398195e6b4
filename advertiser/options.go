package advertiser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// Option is a functional option for configuring an Advertiser.
type Option func(*Advertiser) error

// WithHostname sets the hostname used for Service entries that don't
// specify their own. If not provided, the system hostname (plus ".local")
// is used.
func WithHostname(hostname string) Option {
	return func(a *Advertiser) error {
		if hostname == "" {
			return &dnserrors.ValidationError{Field: "hostname", Message: "cannot be empty"}
		}
		a.hostname = hostname
		return nil
	}
}

// WithLogger overrides the advertiser's default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(a *Advertiser) error {
		a.logger = l
		return nil
	}
}

// WithMetricsRegisterer registers the advertiser's Prometheus metrics on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(a *Advertiser) error {
		a.registerer = reg
		return nil
	}
}
