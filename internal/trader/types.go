package trader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// AllSymbols asks a position query to enumerate every held symbol.
const AllSymbols = "all"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SideFor derives the order side from a signed quantity.
func SideFor(qty float64) Side {
	if qty < 0 {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Price is either the market sentinel (the zero value) or a limit price.
type Price struct {
	Limit float64
}

// Market executes at the best available price.
var Market = Price{}

func Limit(p float64) Price { return Price{Limit: p} }

func (p Price) IsMarket() bool { return p.Limit == 0 }

func (p Price) OrderType() OrderType {
	if p.IsMarket() {
		return OrderTypeMarket
	}
	return OrderTypeLimit
}

func (p Price) String() string {
	if p.IsMarket() {
		return "market"
	}
	return strconv.FormatFloat(p.Limit, 'f', -1, 64)
}

// ParsePrice accepts "market" (or an empty string) and positive numbers.
func ParsePrice(s string) (Price, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "market" {
		return Market, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return Price{}, fmt.Errorf("%w: price must be \"market\" or a positive number, got %q", ErrInvalidOrder, s)
	}
	return Limit(v), nil
}

// OrderRequest is what a broker binding submits. Quantity is always positive;
// the direction lives in Side.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Quantity float64
	Price    Price
	ClientID string
}

func (r OrderRequest) String() string {
	return fmt.Sprintf("symbol: %s, side: %s, qty: %s, price: %s",
		r.Symbol, r.Side, strconv.FormatFloat(r.Quantity, 'f', -1, 64), r.Price)
}

// OrderAck is the broker's acceptance of a submitted order.
type OrderAck struct {
	OrderID     string    `json:"order_id" yaml:"order_id"`
	Symbol      string    `json:"symbol" yaml:"symbol"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}

type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
	StatusUnknown         OrderStatus = "UNKNOWN"
)

// Terminal reports whether the broker will not change the order any more.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// OrderReport is the normalized view of an order as the broker reports it.
type OrderReport struct {
	Broker      string      `json:"broker" yaml:"broker"`
	OrderID     string      `json:"order_id" yaml:"order_id"`
	ClientID    string      `json:"client_id" yaml:"client_id"`
	SubmittedAt time.Time   `json:"submitted_at" yaml:"submitted_at"`
	FilledAt    time.Time   `json:"filled_at" yaml:"filled_at"`
	Type        OrderType   `json:"type" yaml:"type"`
	Side        Side        `json:"side" yaml:"side"`
	Symbol      string      `json:"symbol" yaml:"symbol"`
	Price       float64     `json:"price" yaml:"price"`
	AvgPrice    float64     `json:"avg_price" yaml:"avg_price"`
	OrigQty     float64     `json:"orig_qty" yaml:"orig_qty"`
	ExecutedQty float64     `json:"executed_qty" yaml:"executed_qty"`
	Status      OrderStatus `json:"status" yaml:"status"`
}

func (r OrderReport) String() string {
	return fmt.Sprintf("[%s, %s, %s, %s, %s, %s, %s, %s, %s, %s]",
		formatMillis(r.SubmittedAt), formatMillis(r.FilledAt), r.OrderID, r.Type, r.Side, r.Symbol,
		formatFloat(r.Price), formatFloat(r.AvgPrice), formatFloat(r.OrigQty), formatFloat(r.ExecutedQty))
}

type MarginMode string

const (
	MarginIsolated MarginMode = "isolated"
	MarginCross    MarginMode = "cross"
)

func ParseMarginMode(s string) (MarginMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "isolated":
		return MarginIsolated, nil
	case "cross", "crossed":
		return MarginCross, nil
	default:
		return "", fmt.Errorf("unknown margin mode %q", s)
	}
}

// Position is a read-only snapshot of one holding. Quantity is signed:
// negative for a short futures position.
type Position struct {
	Symbol           string     `json:"symbol" yaml:"symbol"`
	Name             string     `json:"name" yaml:"name"`
	Quantity         float64    `json:"quantity" yaml:"quantity"`
	EntryPrice       float64    `json:"entry_price" yaml:"entry_price"`
	MarkPrice        float64    `json:"mark_price" yaml:"mark_price"`
	UnrealizedProfit float64    `json:"unrealized_profit" yaml:"unrealized_profit"`
	Leverage         int        `json:"leverage" yaml:"leverage"`
	MarginMode       MarginMode `json:"margin_mode" yaml:"margin_mode"`
}

type Balance struct {
	Asset     string  `json:"asset" yaml:"asset"`
	Total     float64 `json:"total" yaml:"total"`
	Available float64 `json:"available" yaml:"available"`
}

// AccountSnapshot is the extended account view used by the display flag.
type AccountSnapshot struct {
	AccountName    string     `json:"account_name" yaml:"account_name"`
	TotalAsset     float64    `json:"total_asset" yaml:"total_asset"`
	Profit         float64    `json:"profit" yaml:"profit"`
	ReturnPct      float64    `json:"return_pct" yaml:"return_pct"`
	Cash           float64    `json:"cash" yaml:"cash"`
	StockValuation float64    `json:"stock_valuation" yaml:"stock_valuation"`
	Positions      []Position `json:"positions" yaml:"positions"`
}

type Candle struct {
	OpenTime  time.Time `json:"open_time" yaml:"open_time"`
	CloseTime time.Time `json:"close_time" yaml:"close_time"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    float64   `json:"volume" yaml:"volume"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMillis(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
