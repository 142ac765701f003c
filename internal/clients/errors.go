package clients

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable marks any failure of an external collaborator:
// transport errors, non-2xx responses, open circuit breakers, rate limiter
// waits that could not complete.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + ErrUpstreamUnavailable.Error()
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
