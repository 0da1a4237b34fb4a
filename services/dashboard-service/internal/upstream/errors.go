package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureConnectionRefused
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnectionRefused:
		return "connection_refused"
	case FailureTimeout:
		return "timeout"
	default:
		return "other"
	}
}

var (
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	ErrInvalidBody      = errors.New("upstream returned invalid JSON")
)

// Error is a failed call to one upstream.
type Error struct {
	Upstream string
	Kind     FailureKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps a transport error to a failure kind.
func Classify(err error) FailureKind {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureConnectionRefused
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureOther
}
