package trader

import (
	"context"
	"time"
)

// ConfirmPolicy decides when a submitted order counts as complete.
type ConfirmPolicy string

const (
	// ConfirmFilled polls the order until the broker reports FILLED.
	ConfirmFilled ConfirmPolicy = "filled"
	// ConfirmNoOpenOrders polls until the symbol has no open orders left.
	ConfirmNoOpenOrders ConfirmPolicy = "no_open_orders"
)

// Capabilities describes what a binding can do beyond the core contract.
type Capabilities struct {
	Leverage        bool
	MarginMode      bool
	UnrealizedPnL   bool
	Candles         bool
	ConfirmPolicies []ConfirmPolicy
	DefaultConfirm  ConfirmPolicy
}

func (c Capabilities) supports(p ConfirmPolicy) bool {
	for _, have := range c.ConfirmPolicies {
		if have == p {
			return true
		}
	}
	return false
}

// Broker is the contract every binding implements. Operations a binding has no
// counterpart for return an error matching ErrNotSupported.
type Broker interface {
	Name() string
	Capabilities() Capabilities

	// Verify is the startup health check.
	Verify(ctx context.Context) error

	// SubmitOrder places the order once. A local rate limit is reported as
	// *RateLimitedError; retrying is the caller's job.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	OrderStatus(ctx context.Context, symbol, orderID string) (OrderReport, error)
	OpenOrders(ctx context.Context, symbol string) ([]OrderReport, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error

	Price(ctx context.Context, symbol string) (float64, error)
	QuoteBalance(ctx context.Context) (Balance, error)
	// Positions returns every nonzero holding, or only symbol's when it is
	// not AllSymbols. A single-symbol query must not return rows for other
	// symbols; rows carry the exchange's canonical symbol.
	Positions(ctx context.Context, symbol string) ([]Position, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// SetMarginMode reports false when the symbol already uses mode.
	SetMarginMode(ctx context.Context, symbol string, mode MarginMode) (bool, error)
	AccountSnapshot(ctx context.Context) (AccountSnapshot, error)
	Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)

	Close() error
}

// UnsupportedBroker can be embedded by bindings to fail fast on every optional
// operation they do not override.
type UnsupportedBroker struct {
	BrokerName string
}

func (u UnsupportedBroker) CancelAllOrders(context.Context, string) error {
	return Unsupported(u.BrokerName, "CancelAllOrders")
}

func (u UnsupportedBroker) SetLeverage(context.Context, string, int) error {
	return Unsupported(u.BrokerName, "SetLeverage")
}

func (u UnsupportedBroker) SetMarginMode(context.Context, string, MarginMode) (bool, error) {
	return false, Unsupported(u.BrokerName, "SetMarginMode")
}

func (u UnsupportedBroker) AccountSnapshot(context.Context) (AccountSnapshot, error) {
	return AccountSnapshot{}, Unsupported(u.BrokerName, "AccountSnapshot")
}

func (u UnsupportedBroker) Candles(context.Context, string, string, time.Time, time.Time) ([]Candle, error) {
	return nil, Unsupported(u.BrokerName, "Candles")
}

func (u UnsupportedBroker) Close() error { return nil }
