package trader

import (
	"context"
	"fmt"
	"time"

	"supertrader/internal/config"
	"supertrader/internal/gateway/notifier"
	"supertrader/internal/logger"
)

// Notifier is the status sink every trader operation reports through.
type Notifier interface {
	Send(msg string, level logger.Level, external bool)
}

// Options tunes confirmation, retry and liquidation behaviour.
type Options struct {
	// Confirm overrides the broker's default confirmation policy when set.
	Confirm                 ConfirmPolicy
	PollInterval            time.Duration
	LiquidationPollInterval time.Duration
	MaxRateLimitRetries     int
	// MaxPollErrors is how many consecutive failed status polls a
	// confirmation wait absorbs before giving up.
	MaxPollErrors           int
	Journal                 Journal
	Now                     func() time.Time
	// Sleep waits d or until ctx is done. Tests replace it to observe delays.
	Sleep                   func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		PollInterval:            100 * time.Millisecond,
		LiquidationPollInterval: time.Second,
		MaxRateLimitRetries:     5,
		MaxPollErrors:           3,
	}
}

// OptionsFromConfig maps the trader section of the config file.
func OptionsFromConfig(c config.TraderConfig) Options {
	return Options{
		Confirm:                 ConfirmPolicy(c.Confirm),
		PollInterval:            c.PollInterval(),
		LiquidationPollInterval: c.LiquidationPollInterval(),
		MaxRateLimitRetries:     c.MaxRateLimitRetries,
		MaxPollErrors:           c.MaxPollErrors,
	}
}

func (o *Options) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.LiquidationPollInterval <= 0 {
		o.LiquidationPollInterval = time.Second
	}
	if o.MaxRateLimitRetries < 0 {
		o.MaxRateLimitRetries = 0
	}
	if o.MaxPollErrors < 0 {
		o.MaxPollErrors = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
}

// Trader drives one broker binding. It owns the binding for its lifetime and
// is not safe for concurrent use.
type Trader struct {
	broker  Broker
	notify  Notifier
	opts    Options
	confirm ConfirmPolicy
}

// New runs the startup sequence: messaging, market gate, then health check.
// A closed market returns ErrMarketClosed before the broker is touched.
func New(ctx context.Context, broker Broker, gate MarketGate, n Notifier, opts Options) (*Trader, error) {
	if broker == nil {
		return nil, fmt.Errorf("trader: broker is required")
	}
	if n == nil {
		n = notifier.New(nil)
	}
	if gate == nil {
		gate = AlwaysOpen{}
	}
	opts.normalize()

	policy, err := resolveConfirm(broker, opts.Confirm)
	if err != nil {
		return nil, err
	}
	t := &Trader{broker: broker, notify: n, opts: opts, confirm: policy}
	t.info("set_slack...OK", false)

	if err := t.checkMarketOpen(gate); err != nil {
		return nil, err
	}
	if err := t.checkSystem(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func resolveConfirm(b Broker, want ConfirmPolicy) (ConfirmPolicy, error) {
	caps := b.Capabilities()
	if want == "" {
		want = caps.DefaultConfirm
	}
	if want == "" {
		want = ConfirmFilled
	}
	if !caps.supports(want) {
		return "", fmt.Errorf("%w: %s cannot confirm orders by %q", ErrNotSupported, b.Name(), want)
	}
	return want, nil
}

func (t *Trader) checkMarketOpen(gate MarketGate) error {
	open, reason := gate.IsTradableToday(t.opts.Now())
	if !open {
		if reason != "" {
			logger.Infof("market gate: %s", reason)
		}
		t.info("Today is Closed day.", false)
		return ErrMarketClosed
	}
	t.info("check_market_open...OK", true)
	return nil
}

func (t *Trader) checkSystem(ctx context.Context) error {
	if err := t.broker.Verify(ctx); err != nil {
		t.notify.Send("check_system...FAILED", logger.LevelWarning, true)
		return fmt.Errorf("%w: %s: %w", ErrSystemUnavailable, t.broker.Name(), err)
	}
	t.info("check_system...OK", true)
	return nil
}

// Broker exposes the bound broker, mainly for the CLI and HTTP surface.
func (t *Trader) Broker() Broker { return t.broker }

// ConfirmPolicy reports the policy orders are confirmed with.
func (t *Trader) ConfirmPolicy() ConfirmPolicy { return t.confirm }

// Notify forwards an operator message through the trader's notifier.
func (t *Trader) Notify(msg string, level logger.Level, external bool) {
	t.notify.Send(msg, level, external)
}

// Close releases the broker session.
func (t *Trader) Close() error {
	return t.broker.Close()
}

func (t *Trader) info(msg string, external bool) {
	t.notify.Send(msg, logger.LevelInfo, external)
}

func (t *Trader) sleep(ctx context.Context, d time.Duration) error {
	return t.opts.Sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
