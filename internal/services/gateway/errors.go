package gateway

import (
	"errors"
	"fmt"
)

// ErrBadSignature indicates a webhook payload whose signature did not verify
var ErrBadSignature = errors.New("webhook signature verification failed")

// Error is a gateway call failure. Transient errors (network, provider 5xx)
// may be retried with the same idempotency key; permanent ones may not.
type Error struct {
	Op        string
	Code      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retriable gateway failure
func IsTransient(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Transient
}
