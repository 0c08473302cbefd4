package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies transport failures so callers can pick a recovery
// path without string matching.
type Kind int

const (
	// KindProtocol covers malformed envelopes and decode failures.
	KindProtocol Kind = iota
	// KindTimeout means the host did not answer within the deadline.
	KindTimeout
	// KindNotConnected means the socket could not be reached at all.
	KindNotConnected
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotConnected:
		return "not connected"
	default:
		return "protocol"
	}
}

// Error is a transport-level failure: the exchange itself broke down.
// A host that answers ok:false is not a transport error.
type Error struct {
	Kind      Kind
	Action    string
	RequestID string
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge %s (%s, request %s): %v", e.Action, e.Kind, e.RequestID, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == KindTimeout
}

// IsNotConnected reports whether err means the host socket was
// unreachable.
func IsNotConnected(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == KindNotConnected
}
