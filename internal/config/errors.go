package config

import (
	"errors"
	"fmt"
)

// ErrConfig matches every configuration failure.
var ErrConfig = errors.New("config error")

// Error describes a missing or malformed configuration key.
type Error struct {
	Key    string
	Reason string
	Err    error
}

func newError(key, reason string, cause error) *Error {
	return &Error{Key: key, Reason: reason, Err: cause}
}

func (e *Error) Error() string {
	msg := "config: " + e.Reason
	if e.Key != "" {
		msg = fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}
