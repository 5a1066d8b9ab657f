package notifier

import (
	"time"

	"supertrader/internal/logger"
	"supertrader/internal/pkg/circuit"
)

const (
	breakerThreshold = 3
	// DefaultSuspension is how long external delivery stays off once the
	// breaker opens.
	DefaultSuspension = 5 * time.Minute
)

// Notifier mirrors status text into the local log and, on request, into an
// external chat sink. Delivery failures never reach the caller.
type Notifier struct {
	sink    TextNotifier
	breaker *circuit.CircuitBreaker
	now     func() time.Time
}

type Option func(*Notifier)

// WithClock overrides the timestamp source used for the external prefix.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// WithBreaker replaces the default breaker; nil disables it.
func WithBreaker(cb *circuit.CircuitBreaker) Option {
	return func(n *Notifier) { n.breaker = cb }
}

// WithSuspension sets how long external delivery is skipped after repeated
// failures. Zero or less disables suspension so every message is attempted.
func WithSuspension(d time.Duration) Option {
	return func(n *Notifier) {
		if d <= 0 {
			n.breaker = nil
			return
		}
		n.breaker = newBreaker(d)
	}
}

func newBreaker(suspension time.Duration) *circuit.CircuitBreaker {
	cb := circuit.NewCircuitBreaker("notifier", breakerThreshold, suspension)
	cb.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("%s circuit %s -> %s", name, from, to)
	})
	return cb
}

func New(sink TextNotifier, opts ...Option) *Notifier {
	n := &Notifier{
		sink:    sink,
		breaker: newBreaker(DefaultSuspension),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send logs msg at level and, when external is set, posts "[timestamp] msg"
// to the sink.
func (n *Notifier) Send(msg string, level logger.Level, external bool) {
	logger.Log(level, msg)
	if n == nil || !external || n.sink == nil {
		return
	}
	if n.breaker != nil && !n.breaker.Allow() {
		logger.Warnf("external notification suspended after repeated failures; message kept in local log only")
		return
	}
	text := "[" + n.now().Format("2006-01-02 15:04:05") + "] " + msg
	if err := n.sink.SendText(text); err != nil {
		if n.breaker != nil {
			n.breaker.RecordFailure()
		}
		logger.Warnf("Slack message sending failed. Please check info_slack. (%v)", err)
		return
	}
	if n.breaker != nil {
		n.breaker.RecordSuccess()
	}
}

// Info is shorthand for an info-level Send.
func (n *Notifier) Info(msg string, external bool) {
	n.Send(msg, logger.LevelInfo, external)
}
