package trader

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"supertrader/internal/logger"
)

// Execute places an order for a signed quantity: positive buys, negative
// sells, and abs(qty) is traded. It blocks until the confirmation policy is
// satisfied. Every failure is reported, journaled and returned wrapped in
// ErrOrderSubmission; a non-nil report may accompany ErrOrderNotFilled.
func (t *Trader) Execute(ctx context.Context, symbol string, qty float64, price Price) (*OrderReport, error) {
	req := OrderRequest{
		Symbol:   symbol,
		Side:     SideFor(qty),
		Quantity: math.Abs(qty),
		Price:    price,
		ClientID: uuid.NewString(),
	}
	if err := validateRequest(req); err != nil {
		return nil, t.orderFailed(ctx, ActionExecute, req, nil, err)
	}
	t.info("send_order -> "+req.String(), false)

	ack, err := t.submit(ctx, req)
	if err != nil {
		return nil, t.orderFailed(ctx, ActionExecute, req, nil, err)
	}
	logger.Debugf("order accepted: broker=%s id=%s client_id=%s", t.broker.Name(), ack.OrderID, req.ClientID)

	report, err := t.awaitCompletion(ctx, req, ack)
	if err != nil {
		return report, t.orderFailed(ctx, ActionExecute, req, report, err)
	}
	if report.ClientID == "" {
		report.ClientID = req.ClientID
	}
	t.info("execute_order: "+report.String(), false)
	t.record(ctx, JournalEntry{Action: ActionExecute, Request: req, Report: report})
	return report, nil
}

func validateRequest(req OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if req.Quantity == 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return fmt.Errorf("%w: quantity must be a nonzero number", ErrInvalidOrder)
	}
	if req.Price.Limit < 0 || math.IsNaN(req.Price.Limit) || math.IsInf(req.Price.Limit, 0) {
		return fmt.Errorf("%w: limit price must be positive", ErrInvalidOrder)
	}
	return nil
}

// submit resubmits the identical request after each broker-reported cooldown,
// at most MaxRateLimitRetries times.
func (t *Trader) submit(ctx context.Context, req OrderRequest) (OrderAck, error) {
	for attempt := 0; ; attempt++ {
		ack, err := t.broker.SubmitOrder(ctx, req)
		var limited *RateLimitedError
		if !errors.As(err, &limited) {
			return ack, err
		}
		if attempt >= t.opts.MaxRateLimitRetries {
			return OrderAck{}, fmt.Errorf("%w: gave up after %d resubmissions: %v",
				ErrPersistentRateLimit, attempt, err)
		}
		t.notify.Send(fmt.Sprintf("order rate limited, resubmitting in %s (%d/%d)",
			limited.Cooldown, attempt+1, t.opts.MaxRateLimitRetries), logger.LevelWarning, false)
		if err := t.sleep(ctx, limited.Cooldown); err != nil {
			return OrderAck{}, err
		}
	}
}

func (t *Trader) awaitCompletion(ctx context.Context, req OrderRequest, ack OrderAck) (*OrderReport, error) {
	symbol := ack.Symbol
	if symbol == "" {
		symbol = req.Symbol
	}
	switch t.confirm {
	case ConfirmNoOpenOrders:
		return t.awaitNoOpenOrders(ctx, symbol, ack.OrderID)
	default:
		return t.awaitFilled(ctx, symbol, ack.OrderID)
	}
}

func (t *Trader) awaitFilled(ctx context.Context, symbol, orderID string) (*OrderReport, error) {
	failures := 0
	for {
		if err := t.sleep(ctx, t.opts.PollInterval); err != nil {
			return nil, err
		}
		report, err := t.broker.OrderStatus(ctx, symbol, orderID)
		if err != nil {
			if err := t.pollFailed(ctx, "order status", err, &failures); err != nil {
				return nil, err
			}
			continue
		}
		failures = 0
		if report.Status == StatusFilled {
			t.info("check_order_completion...OK", false)
			return &report, nil
		}
		if report.Status.Terminal() {
			return &report, fmt.Errorf("%w: order %s is %s", ErrOrderNotFilled, orderID, report.Status)
		}
	}
}

func (t *Trader) awaitNoOpenOrders(ctx context.Context, symbol, orderID string) (*OrderReport, error) {
	failures := 0
	for {
		if err := t.sleep(ctx, t.opts.PollInterval); err != nil {
			return nil, err
		}
		open, err := t.broker.OpenOrders(ctx, symbol)
		if err != nil {
			if err := t.pollFailed(ctx, "open orders", err, &failures); err != nil {
				return nil, err
			}
			continue
		}
		failures = 0
		if len(open) == 0 {
			break
		}
	}
	t.info("check_order_completion...OK", false)
	report, err := t.broker.OrderStatus(ctx, symbol, orderID)
	if err != nil {
		return nil, err
	}
	if report.Status.Terminal() && report.Status != StatusFilled {
		return &report, fmt.Errorf("%w: order %s is %s", ErrOrderNotFilled, orderID, report.Status)
	}
	return &report, nil
}

// pollFailed decides whether a failed confirmation poll ends the wait. The
// order is already live, so up to MaxPollErrors consecutive failures are
// logged and the poll retried; a rate limit also waits out its cooldown.
// Context and unsupported errors end the wait at once.
func (t *Trader) pollFailed(ctx context.Context, what string, err error, failures *int) error {
	if ctx.Err() != nil || errors.Is(err, ErrNotSupported) {
		return err
	}
	*failures++
	if *failures > t.opts.MaxPollErrors {
		return fmt.Errorf("%s poll failed %d times in a row: %w", what, *failures, err)
	}
	t.notify.Send(fmt.Sprintf("%s poll failed (%d/%d), retrying: %v",
		what, *failures, t.opts.MaxPollErrors, err), logger.LevelWarning, false)
	var limited *RateLimitedError
	if errors.As(err, &limited) {
		return t.sleep(ctx, limited.Cooldown)
	}
	return nil
}

// CancelOrder cancels one open order.
func (t *Trader) CancelOrder(ctx context.Context, symbol, orderID string) error {
	t.info("cancel_open_order -> order_id: "+orderID, true)
	req := OrderRequest{Symbol: symbol}
	if err := t.broker.CancelOrder(ctx, symbol, orderID); err != nil {
		return t.orderFailed(ctx, ActionCancel, req, &OrderReport{OrderID: orderID, Symbol: symbol}, err)
	}
	t.info("cancel_open_order...OK", true)
	t.record(ctx, JournalEntry{Action: ActionCancel, Request: req, Report: &OrderReport{OrderID: orderID, Symbol: symbol, Status: StatusCanceled}})
	return nil
}

// CancelAll cancels every open order for symbol.
func (t *Trader) CancelAll(ctx context.Context, symbol string) error {
	t.info("cancel_open_order -> all_order: True", true)
	req := OrderRequest{Symbol: symbol}
	if err := t.broker.CancelAllOrders(ctx, symbol); err != nil {
		return t.orderFailed(ctx, ActionCancelAll, req, nil, err)
	}
	t.info("cancel_open_order...OK", true)
	t.record(ctx, JournalEntry{Action: ActionCancelAll, Request: req})
	return nil
}

func (t *Trader) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive, got %d", ErrInvalidOrder, leverage)
	}
	t.info(fmt.Sprintf("set_leverage -> symbol: %s, leverage: %d", symbol, leverage), false)
	if err := t.broker.SetLeverage(ctx, symbol, leverage); err != nil {
		return t.fail(fmt.Sprintf("set_leverage failed -> symbol: %s", symbol), err)
	}
	t.info("set_leverage...OK", false)
	return nil
}

// SetMarginMode reports false when the symbol already used mode.
func (t *Trader) SetMarginMode(ctx context.Context, symbol string, mode MarginMode) (bool, error) {
	t.info(fmt.Sprintf("set_margin_mode -> symbol: %s, margin_mode: %s", symbol, mode), false)
	changed, err := t.broker.SetMarginMode(ctx, symbol, mode)
	if err != nil {
		return false, t.fail(fmt.Sprintf("set_margin_mode failed -> symbol: %s", symbol), err)
	}
	if !changed {
		t.info(fmt.Sprintf("margin_mode is already %s", mode), false)
		return false, nil
	}
	t.info("set_margin_mode...OK", false)
	return true, nil
}

// ClosePosition flattens one symbol with a market order. It returns a nil
// report when nothing was held.
func (t *Trader) ClosePosition(ctx context.Context, symbol string) (*OrderReport, error) {
	prev, err := t.Holding(ctx, symbol)
	if err != nil {
		return nil, err
	}
	t.info(fmt.Sprintf("end_all_position -> symbol: %s, prev_qty: %s", symbol, formatFloat(prev)), false)
	if prev == 0 {
		return nil, nil
	}
	report, err := t.Execute(ctx, symbol, -prev, Market)
	if err != nil {
		return report, err
	}
	t.info("end_all_position...OK", false)
	return report, nil
}

func (t *Trader) orderFailed(ctx context.Context, action string, req OrderRequest, report *OrderReport, cause error) error {
	level := logger.LevelError
	if errors.Is(cause, ErrPersistentRateLimit) {
		level = logger.LevelCritical
	}
	t.notify.Send(fmt.Sprintf("%s failed -> %s, broker: %s, error: %v", action, req, t.broker.Name(), cause), level, true)
	t.record(ctx, JournalEntry{Action: action, Request: req, Report: report, Err: cause})
	return fmt.Errorf("%w: %s %s: %w", ErrOrderSubmission, action, req.Symbol, cause)
}

func (t *Trader) fail(msg string, cause error) error {
	t.notify.Send(fmt.Sprintf("%s, error: %v", msg, cause), logger.LevelError, true)
	return cause
}

func (t *Trader) record(ctx context.Context, entry JournalEntry) {
	if t.opts.Journal == nil {
		return
	}
	entry.Broker = t.broker.Name()
	// The journal must see the outcome even when the order context is done.
	if err := t.opts.Journal.RecordOrder(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warnf("order journal write failed: %v", err)
	}
}
