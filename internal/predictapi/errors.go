package predictapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a retrieval failure.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindTimeout
	KindServer
	KindNotFound
)

var (
	ErrTransport = errors.New("prediction service unreachable")
	ErrTimeout   = errors.New("prediction service timed out")
	ErrServer    = errors.New("prediction service error")
	ErrNotFound  = errors.New("prediction not found")
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not found"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindServer:
		return ErrServer
	case KindNotFound:
		return ErrNotFound
	}
	return nil
}

// RetrievalError is the single failure type returned by Client calls.
// Use errors.Is with ErrTransport, ErrTimeout, ErrServer or ErrNotFound to branch on the kind.
type RetrievalError struct {
	Op         string
	Kind       Kind
	StatusCode int
	RequestID  string
	Err        error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *RetrievalError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// classify maps an http.Client.Do error to a kind.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
