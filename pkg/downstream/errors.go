package downstream

import (
	"errors"
	"fmt"
)

// Class categorizes a downstream fault for retry decisions and
// HTTP translation.
type Class string

const (
	// ClassTransient covers retryable failures: network errors,
	// HTTP 429 and HTTP 5xx responses.
	ClassTransient Class = "transient"

	// ClassTimeout covers per-call timeouts.
	ClassTimeout Class = "timeout"

	// ClassCircuitOpen means the target's breaker rejected the call
	// without a network attempt.
	ClassCircuitOpen Class = "circuit_open"

	// ClassClient covers 4xx responses other than 429; never retried.
	ClassClient Class = "client"

	// ClassUnclassified is the catch-all for failures that fit no
	// other class.
	ClassUnclassified Class = "unclassified"
)

// Fault is the uniform failure signal for downstream calls. Non-success
// HTTP responses keep their original status code and body so the fault
// translator can reproduce them.
type Fault struct {
	Target     string
	Class      Class
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s %s fault (status %d): %s: %v",
			f.Target, f.Class, f.StatusCode, f.Message, f.Err)
	}
	return fmt.Sprintf("%s %s fault (status %d): %s",
		f.Target, f.Class, f.StatusCode, f.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Retryable reports whether the fault class qualifies for automatic retry.
func (f *Fault) Retryable() bool {
	switch f.Class {
	case ClassTransient, ClassTimeout:
		return true
	case ClassCircuitOpen, ClassClient, ClassUnclassified:
		return false
	default:
		return false
	}
}

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
