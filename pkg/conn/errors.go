package conn

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a connection ended abnormally.
type ErrorKind uint8

const (
	Timeout ErrorKind = iota + 1
	TransportFailure
	ProtocolViolation
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case TransportFailure:
		return "transport failure"
	case ProtocolViolation:
		return "protocol violation"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTimeout           = errors.New("conn: timeout")
	ErrTransportFailure  = errors.New("conn: transport failure")
	ErrProtocolViolation = errors.New("conn: protocol violation")
	ErrCancelled         = errors.New("conn: cancelled")
)

// Error is passed to Config.OnClose and returned by Serve when a connection
// ends for a reason other than an orderly close.
type Error struct {
	Kind ErrorKind
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conn: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("conn: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case Timeout:
		return target == ErrTimeout
	case TransportFailure:
		return target == ErrTransportFailure
	case ProtocolViolation:
		return target == ErrProtocolViolation
	case Cancelled:
		return target == ErrCancelled
	}
	return false
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
