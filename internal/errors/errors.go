// Package errors defines the structured error types shared by every layer
// of the DNS/mDNS/DNS-SD library: the wire codec, the transport, and the
// three protocol roles (resolver, advertiser, discoverer).
//
// NetworkError, TimeoutError and WireFormatError carry an Operation string
// describing what step failed and wrap their root cause (if any) via Unwrap;
// ValidationError names the offending Field instead. A WireFormatError is
// comparable by Kind, so callers can use errors.Is against a
// &WireFormatError{Kind: ...} target without depending on message text.
package errors

import (
	"fmt"
)

// Kind classifies a WireFormatError per the codec's error taxonomy. Codec
// callers (resolver, discoverer, advertiser) switch on Kind to decide
// whether to log-and-skip a datagram or propagate the failure.
type Kind string

const (
	// KindEOF means the input ended mid-field.
	KindEOF Kind = "eof"
	// KindPointerLoop means a domain-name compression pointer violated the
	// strictly-backward invariant (self-loop or forward reference).
	KindPointerLoop Kind = "pointer_loop"
	// KindInvalidValue means a reserved or out-of-range wire value was seen,
	// e.g. a label-length tag of 01/10, or a DNS-SD transport label that is
	// neither "_tcp" nor "_udp".
	KindInvalidValue Kind = "invalid_value"
	// KindInvalidEmptyLabel means an empty label appeared where the grammar
	// forbids one (e.g. consecutive dots in a name string).
	KindInvalidEmptyLabel Kind = "invalid_empty_label"
	// KindLabelTooLong means a label exceeded the 63-byte maximum.
	KindLabelTooLong Kind = "label_too_long"
	// KindTruncated means an encoder finalized with its truncation flag set.
	KindTruncated Kind = "truncated"
)

// NetworkError represents network-related failures such as socket creation,
// binding, or I/O operations.
type NetworkError struct {
	// Operation describes what network operation failed (e.g. "bind socket", "send query").
	Operation string

	// Err is the underlying error from the network stack.
	Err error

	// Details provides additional context for troubleshooting.
	Details string
}

func (e *NetworkError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("network error during %s: %v (%s)", e.Operation, e.Err, e.Details)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error, enabling error chain inspection with errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TimeoutError represents the exhaustion of a resolver's receive deadline or
// a discoverer's overall discovery deadline.
type TimeoutError struct {
	// Operation describes what was waiting (e.g. "resolve", "load instance details").
	Operation string

	// Err is the underlying timeout error from the transport, if any.
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s timed out: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s timed out", e.Operation)
}

// Unwrap returns the underlying error, enabling error chain inspection with errors.Is/As.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Timeout reports true, satisfying the net.Error-shaped duck type many
// callers probe for.
func (e *TimeoutError) Timeout() bool { return true }

// ValidationError represents validation failures for constructor inputs such
// as invalid names, out-of-range record fields, or empty TXT keys.
type ValidationError struct {
	// Field identifies which input field failed validation (e.g. "name", "label").
	Field string

	// Value is the invalid value that was provided (if safe to include).
	Value interface{}

	// Message describes why the validation failed.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// WireFormatError represents errors decoding or encoding DNS wire format
// messages: malformed packets, invalid compression pointers, truncated
// buffers, or an encoder finalizing over budget.
type WireFormatError struct {
	// Operation describes what parsing/encoding step failed (e.g. "decode name", "encode rdata").
	Operation string

	// Kind classifies the failure; see the Kind* constants.
	Kind Kind

	// Offset is the byte offset in the message where the error occurred, or -1 if not applicable.
	Offset int

	// Message describes why the wire format is invalid.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *WireFormatError) Error() string {
	var msg string
	if e.Offset >= 0 {
		msg = fmt.Sprintf("wire format error (%s) during %s at offset %d: %s", e.Kind, e.Operation, e.Offset, e.Message)
	} else {
		msg = fmt.Sprintf("wire format error (%s) during %s: %s", e.Kind, e.Operation, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, enabling error chain inspection with errors.Is/As.
func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *WireFormatError of the same Kind, letting
// callers write errors.Is(err, &errors.WireFormatError{Kind: errors.KindEOF})
// without matching on Offset/Message/Err.
func (e *WireFormatError) Is(target error) bool {
	other, ok := target.(*WireFormatError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}
