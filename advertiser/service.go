package advertiser

import (
	"strings"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
)

// Service describes one mDNS service instance to advertise, per RFC 6763 §4.
type Service struct {
	// InstanceName is the human-readable service instance name (e.g. "My Printer").
	InstanceName string

	// ServiceName is the service type's name label without the transport
	// suffix (e.g. "ipp" for "_ipp._tcp").
	ServiceName string

	// Transport is "tcp" or "udp".
	Transport string

	// Port is the service port number (1-65535).
	Port uint16

	// Hostname is the target of the SRV record (e.g. "printer.local.").
	// If empty, Advertiser uses its own configured hostname.
	Hostname string

	// TXT contains optional service metadata as key-value pairs. A nil or
	// empty map advertises a single empty TXT entry, per RFC 6763 §6.1.
	TXT map[string]string
}

// Validate checks Service's fields per RFC 6763 §4's instance-name and
// transport-label constraints.
func (s *Service) Validate() error {
	if s.InstanceName == "" {
		return &dnserrors.ValidationError{Field: "InstanceName", Message: "cannot be empty"}
	}
	if len(s.InstanceName) > 63 {
		return &dnserrors.ValidationError{Field: "InstanceName", Value: len(s.InstanceName), Message: "exceeds 63 octets"}
	}
	if s.ServiceName == "" {
		return &dnserrors.ValidationError{Field: "ServiceName", Message: "cannot be empty"}
	}
	switch strings.ToLower(s.Transport) {
	case "tcp", "udp":
	default:
		return &dnserrors.ValidationError{Field: "Transport", Value: s.Transport, Message: "must be \"tcp\" or \"udp\""}
	}
	if s.Port == 0 {
		return &dnserrors.ValidationError{Field: "Port", Value: s.Port, Message: "must be 1-65535"}
	}
	return nil
}
