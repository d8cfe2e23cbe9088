package host

import (
	"errors"
	"fmt"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/native"
	"github.com/linsmod/webf/internal/shared/id"
)

// ErrContextClosed is returned for traffic on a closed execution context.
var ErrContextClosed = errors.New("execution context is closed")

// ErrBusy is wrapped in a TransportError when a flush reaches a host that is
// still applying an earlier batch of the same context. Nothing was consumed.
var ErrBusy = errors.New("host is applying a batch for this context")

// ProtocolError reports a record or call addressing a handle the host does
// not know. Records up to and including Seq were consumed.
type ProtocolError struct {
	Context id.ContextID
	Seq     uint64
	Handle  binding.Handle
	Op      string
	Reason  string
}

func (e *ProtocolError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown handle"
	}
	if e.Seq > 0 {
		return fmt.Sprintf("protocol error: %s %s at seq %d: %s", e.Op, e.Handle, e.Seq, reason)
	}
	return fmt.Sprintf("protocol error: %s %s: %s", e.Op, e.Handle, reason)
}

// InvocationError is a host-reported failure of one binding method call.
type InvocationError struct {
	Method  native.Method
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, e.Message)
}

// AsyncHostError carries the message an async completion failed with.
type AsyncHostError struct {
	Message string
}

func (e *AsyncHostError) Error() string {
	return "host error: " + e.Message
}

// TransportError means the host could not be reached or did not answer.
// Nothing was consumed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("host transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err leaves the host state untouched, i.e.
// it is neither a protocol nor an invocation nor an async host error.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var (
		perr *ProtocolError
		ierr *InvocationError
		aerr *AsyncHostError
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &ierr), errors.As(err, &aerr):
		return false
	case errors.Is(err, ErrContextClosed):
		return false
	}
	return true
}
