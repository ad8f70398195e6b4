// Package svc implements the DNS-SD domain types layered on top of the raw
// name/record codecs: services, service instances, instance details, and
// TXT key/value records, plus the name-construction and name-parsing rules
// RFC 6763 defines for them.
package svc

import (
	"strings"

	dnserrors "github.com/joshuafuller/dnssd/internal/errors"
	"github.com/joshuafuller/dnssd/internal/name"
)

// Transport distinguishes the two DNS-SD transport labels.
type Transport int

const (
	TCP Transport = iota
	Other
)

func (t Transport) label() name.Label {
	if t == TCP {
		return name.Label("_tcp")
	}
	return name.Label("_udp")
}

// Service is a DNS-SD service type: (name_label, transport), encoded on the
// wire as two labels "_name._tcp" or "_name._udp".
type Service struct {
	Name      string
	Transport Transport
}

// prependLabels builds "<a>.<b>.<domain...>" without relying on Name.Append
// leaving the earlier label first, since Append always appends to the tail.
func prependLabels(domain name.Name, labels ...name.Label) name.Name {
	out := name.Name{Labels: make([]name.Label, 0, len(labels)+len(domain.Labels))}
	out.Labels = append(out.Labels, labels...)
	out.Labels = append(out.Labels, domain.Labels...)
	return out
}

// ServiceName returns the fully-qualified "_name._transport.<domain>" name
// used as the PTR owner/target for this service type.
func (svc Service) ServiceName(domain name.Name) (name.Name, error) {
	nameLabel, err := name.NewLabel("_" + svc.Name)
	if err != nil {
		return name.Name{}, err
	}
	return prependLabels(domain, nameLabel, svc.Transport.label()), nil
}

// ParseService decodes a PTR target of the form "_name._tcp.<domain...>"
// (or "_udp") into a Service plus the remaining domain suffix.
func ParseService(n name.Name) (Service, name.Name, error) {
	if len(n.Labels) < 2 {
		return Service{}, name.Name{}, &dnserrors.ValidationError{Field: "service name", Value: n.String(), Message: "too few labels to contain a service type"}
	}
	nameLabel := n.Labels[0].String()
	transportLabel := n.Labels[1].String()
	if !strings.HasPrefix(nameLabel, "_") {
		return Service{}, name.Name{}, &dnserrors.ValidationError{Field: "service name", Value: nameLabel, Message: "service label must start with '_'"}
	}
	var transport Transport
	switch transportLabel {
	case "_tcp":
		transport = TCP
	case "_udp":
		transport = Other
	default:
		return Service{}, name.Name{}, &dnserrors.WireFormatError{
			Operation: "parse service transport", Kind: dnserrors.KindInvalidValue, Offset: -1,
			Message: "transport label must be _tcp or _udp, got " + transportLabel,
		}
	}
	return Service{Name: strings.TrimPrefix(nameLabel, "_"), Transport: transport}, name.Name{Labels: n.Labels[2:]}, nil
}

// MetaQueryName returns the DNS-SD service-type enumeration meta-domain
// "_services._dns-sd._udp.<domain>" per RFC 6763 §9.
func MetaQueryName(domain name.Name) (name.Name, error) {
	services, err := name.NewLabel("_services")
	if err != nil {
		return name.Name{}, err
	}
	dnssd, err := name.NewLabel("_dns-sd")
	if err != nil {
		return name.Name{}, err
	}
	udp, err := name.NewLabel("_udp")
	if err != nil {
		return name.Name{}, err
	}
	return prependLabels(domain, services, dnssd, udp), nil
}

// ServiceInstance is (instance_label, service); its fully-qualified form is
// "instance.service.transport.domain".
type ServiceInstance struct {
	Instance string
	Service  Service
}

// FullName returns the instance's fully-qualified owner name within domain.
func (si ServiceInstance) FullName(domain name.Name) (name.Name, error) {
	instLabel, err := name.NewLabel(si.Instance)
	if err != nil {
		return name.Name{}, err
	}
	svcName, err := si.Service.ServiceName(domain)
	if err != nil {
		return name.Name{}, err
	}
	return prependLabels(svcName, instLabel), nil
}

// ParseServiceInstance decodes a PTR target of the form
// "instance.service.transport.<domain...>" into a ServiceInstance.
func ParseServiceInstance(n name.Name) (ServiceInstance, name.Name, error) {
	if len(n.Labels) < 1 {
		return ServiceInstance{}, name.Name{}, &dnserrors.ValidationError{Field: "instance name", Value: n.String(), Message: "missing instance label"}
	}
	instance := n.Labels[0].String()
	svc, rest, err := ParseService(name.Name{Labels: n.Labels[1:]})
	if err != nil {
		return ServiceInstance{}, name.Name{}, err
	}
	return ServiceInstance{Instance: instance, Service: svc}, rest, nil
}

// TxtRecords is an insertion-ordered set of key/value pairs with
// case-insensitive key lookup; on decode, a duplicate key keeps the first
// occurrence (RFC 6763 §6.4).
type TxtRecords struct {
	keys   []string
	values map[string][]byte
	has    map[string]bool
}

// NewTxtRecords returns an empty TxtRecords set ready for Set/decode use.
func NewTxtRecords() *TxtRecords {
	return &TxtRecords{values: make(map[string][]byte), has: make(map[string]bool)}
}

// Set inserts key=value, or just key (a boolean attribute, per RFC 6763
// §6.4) when value is nil. A duplicate key is ignored, preserving the first
// value inserted.
func (t *TxtRecords) Set(key string, value []byte) {
	lower := strings.ToLower(key)
	if t.has[lower] {
		return
	}
	t.has[lower] = true
	t.keys = append(t.keys, key)
	t.values[lower] = value
}

// Get looks up key case-insensitively, returning its value (nil for a
// boolean attribute) and whether the key was present at all.
func (t *TxtRecords) Get(key string) ([]byte, bool) {
	lower := strings.ToLower(key)
	v, ok := t.has[lower]
	if !ok || !v {
		return nil, false
	}
	return t.values[lower], true
}

// Keys returns the keys in insertion order.
func (t *TxtRecords) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// DecodeTxtRecords parses a TXT record's character-strings into key/value
// pairs, splitting each on the first '=' per RFC 6763 §6.3: a string with
// no '=' is a boolean attribute (present, value nil); a string starting
// with '=' has an empty key and is kept as an opaque entry under "".
func DecodeTxtRecords(strs [][]byte) *TxtRecords {
	t := NewTxtRecords()
	for _, s := range strs {
		if i := indexByte(s, '='); i >= 0 {
			t.Set(string(s[:i]), append([]byte(nil), s[i+1:]...))
		} else {
			t.Set(string(s), nil)
		}
	}
	return t
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// InstanceDetails is the resolved (host, port, txt) triple a discoverer
// produces from an instance's SRV and TXT records.
type InstanceDetails struct {
	Host name.Name
	Port uint16
	TXT  *TxtRecords
}
