package trader

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMarketClosed is not a failure: the process should stop with exit 0.
	ErrMarketClosed = errors.New("market closed today")
	// ErrSystemUnavailable means the broker failed its startup health check.
	ErrSystemUnavailable = errors.New("broker system unavailable")
	// ErrOrderSubmission wraps every failure of an order operation.
	ErrOrderSubmission = errors.New("order submission failed")
	// ErrOrderNotFilled means confirmation observed a terminal state other than FILLED.
	ErrOrderNotFilled = errors.New("order ended without fill")
	// ErrPersistentRateLimit is returned once the resubmission bound is exhausted.
	ErrPersistentRateLimit = errors.New("broker persistently rate-limiting")
	// ErrMalformedResponse means a broker reply lacked an expected field.
	ErrMalformedResponse = errors.New("malformed broker response")
	// ErrNotSupported is returned by operations a binding does not implement.
	ErrNotSupported = errors.New("operation not supported by broker")
	// ErrInvalidOrder rejects requests before they reach the broker.
	ErrInvalidOrder = errors.New("invalid order")
)

// RateLimitedError is how a binding signals a local request limit. The
// executor waits Cooldown and resubmits the identical request.
type RateLimitedError struct {
	Cooldown time.Duration
	Reason   string
}

func (e *RateLimitedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("rate limited, retry after %s", e.Cooldown)
	}
	return fmt.Sprintf("rate limited (%s), retry after %s", e.Reason, e.Cooldown)
}

// Unsupported builds an ErrNotSupported error naming the operation and broker.
func Unsupported(broker, op string) error {
	return fmt.Errorf("%w: %s does not implement %s", ErrNotSupported, broker, op)
}

// Malformed builds an ErrMalformedResponse error for a missing or bad field.
func Malformed(op, field string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: field %s: %v", ErrMalformedResponse, op, field, cause)
	}
	return fmt.Errorf("%w: %s: missing field %s", ErrMalformedResponse, op, field)
}
