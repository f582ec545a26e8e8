package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a terminal gateway error for the transport's
// error mapper (spec §4.8, §7).
type ErrorKind uint8

const (
	// KindStorageFailure wraps any fault surfaced by records-storage or
	// positions-storage.
	KindStorageFailure ErrorKind = iota
	// KindPreProcessorFailure wraps a pre-processor stage failure on
	// PUBLISH.
	KindPreProcessorFailure
	// KindProtocolFailure wraps a malformed request (e.g. an unknown
	// autoOffsetReset enum value).
	KindProtocolFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindStorageFailure:
		return "storage failure"
	case KindPreProcessorFailure:
		return "pre-processor failure"
	case KindProtocolFailure:
		return "protocol failure"
	default:
		return "unknown failure"
	}
}

// Error is the error type every gateway endpoint terminates with. The
// transport layer maps any Error to a single internal-error status
// carrying Error() as the description (spec §4.8, §7); the gateway
// itself never retries.
type Error struct {
	Kind ErrorKind
	// Processor is set only for KindPreProcessorFailure: the identity
	// of the offending stage (spec §4.1, §4.7, §9).
	Processor string
	cause     error
}

func (e *Error) Error() string {
	if e.Processor != "" {
		return fmt.Sprintf("%s: stage %q: %v", e.Kind, e.Processor, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause satisfies github.com/pkg/errors.Causer.
func (e *Error) Cause() error { return e.cause }

func storageErr(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindStorageFailure, cause: errors.Wrap(cause, "storage")}
}

func preProcessorErr(identity string, cause error) error {
	return &Error{Kind: KindPreProcessorFailure, Processor: identity, cause: errors.Wrap(cause, "pre-processor")}
}

func protocolErr(cause error) error {
	return &Error{Kind: KindProtocolFailure, cause: errors.Wrap(cause, "protocol")}
}

// ProtocolError builds a KindProtocolFailure error from a malformed
// wire request (spec §7): the transport layer calls this for inputs
// that never reach a storage or processor call, e.g. an unrecognized
// autoOffsetReset enum value.
func ProtocolError(msg string) error {
	return protocolErr(errors.New(msg))
}
