package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrInvalidRequest is returned before any network call for a malformed url or unsupported method.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnreachable matches a FetchError for a host that has never answered a single request.
	ErrUnreachable = errors.New("remote host unreachable")
)

// FetchError is returned once every retry of a request has failed.
type FetchError struct {
	Method   string
	Url      string
	Status   int
	Attempts int
	Err      error

	unreachable bool
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s %s: status %d after %d attempt(s): %v", e.Method, e.Url, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: after %d attempt(s): %v", e.Method, e.Url, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrUnreachable && e.unreachable
}

// StatusError is the error of an attempt that got a non-2xx response.
type StatusError struct {
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Status)
}

// isTransportError returns true for failures where the server was never reached.
func isTransportError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
