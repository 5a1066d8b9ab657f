package binance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

// formatQty renders a quantity or price without float noise.
func formatQty(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func parseDecimal(op, field, v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, trader.Malformed(op, field, nil)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, trader.Malformed(op, field, err)
	}
	return d, nil
}

func parseFloat(op, field, v string) (float64, error) {
	d, err := parseDecimal(op, field, v)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseOrderID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: order id %q is not numeric", trader.ErrInvalidOrder, id)
	}
	return n, nil
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func mapStatus(s string) trader.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEW", "PENDING_NEW":
		return trader.StatusNew
	case "PARTIALLY_FILLED":
		return trader.StatusPartiallyFilled
	case "FILLED":
		return trader.StatusFilled
	case "CANCELED", "PENDING_CANCEL":
		return trader.StatusCanceled
	case "REJECTED":
		return trader.StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return trader.StatusExpired
	default:
		return trader.StatusUnknown
	}
}

func mapType(s string) trader.OrderType {
	if strings.EqualFold(s, "MARKET") {
		return trader.OrderTypeMarket
	}
	return trader.OrderTypeLimit
}

func mapSide(s string) trader.Side {
	if strings.EqualFold(s, "SELL") {
		return trader.SideSell
	}
	return trader.SideBuy
}

func mapFuturesOrder(o *futures.Order) (trader.OrderReport, error) {
	const op = "futures order"
	if o == nil {
		return trader.OrderReport{}, trader.Malformed(op, "order", nil)
	}
	if o.OrderID == 0 {
		return trader.OrderReport{}, trader.Malformed(op, "orderId", nil)
	}
	price, err := parseFloat(op, "price", o.Price)
	if err != nil {
		return trader.OrderReport{}, err
	}
	avg, err := parseFloat(op, "avgPrice", o.AvgPrice)
	if err != nil {
		return trader.OrderReport{}, err
	}
	orig, err := parseFloat(op, "origQty", o.OrigQuantity)
	if err != nil {
		return trader.OrderReport{}, err
	}
	executed, err := parseFloat(op, "executedQty", o.ExecutedQuantity)
	if err != nil {
		return trader.OrderReport{}, err
	}
	report := trader.OrderReport{
		Broker:      brokerName,
		OrderID:     strconv.FormatInt(o.OrderID, 10),
		ClientID:    o.ClientOrderID,
		SubmittedAt: millis(o.Time),
		Type:        mapType(string(o.Type)),
		Side:        mapSide(string(o.Side)),
		Symbol:      symbol.Binance.FromExchange(o.Symbol),
		Price:       price,
		AvgPrice:    avg,
		OrigQty:     orig,
		ExecutedQty: executed,
		Status:      mapStatus(string(o.Status)),
	}
	if report.Status == trader.StatusFilled {
		report.FilledAt = millis(o.UpdateTime)
	}
	return report, nil
}

// mapSpotOrder derives the average fill price from the cumulative quote
// quantity; the spot API does not report it directly.
func mapSpotOrder(o *gobinance.Order) (trader.OrderReport, error) {
	const op = "spot order"
	if o == nil {
		return trader.OrderReport{}, trader.Malformed(op, "order", nil)
	}
	if o.OrderID == 0 {
		return trader.OrderReport{}, trader.Malformed(op, "orderId", nil)
	}
	price, err := parseFloat(op, "price", o.Price)
	if err != nil {
		return trader.OrderReport{}, err
	}
	orig, err := parseFloat(op, "origQty", o.OrigQuantity)
	if err != nil {
		return trader.OrderReport{}, err
	}
	executed, err := parseDecimal(op, "executedQty", o.ExecutedQuantity)
	if err != nil {
		return trader.OrderReport{}, err
	}
	quote, err := parseDecimal(op, "cummulativeQuoteQty", o.CummulativeQuoteQuantity)
	if err != nil {
		return trader.OrderReport{}, err
	}
	var avg float64
	if executed.IsPositive() {
		avg = quote.Div(executed).InexactFloat64()
	}
	report := trader.OrderReport{
		Broker:      brokerName,
		OrderID:     strconv.FormatInt(o.OrderID, 10),
		ClientID:    o.ClientOrderID,
		SubmittedAt: millis(o.Time),
		Type:        mapType(string(o.Type)),
		Side:        mapSide(string(o.Side)),
		Symbol:      symbol.Binance.FromExchange(o.Symbol),
		Price:       price,
		AvgPrice:    avg,
		OrigQty:     orig,
		ExecutedQty: executed.InexactFloat64(),
		Status:      mapStatus(string(o.Status)),
	}
	if report.Status == trader.StatusFilled {
		report.FilledAt = millis(o.UpdateTime)
	}
	return report, nil
}

// mapPositionRisk keeps flat rows only when keepFlat is set, which lets a
// single-symbol query still report leverage and margin mode.
func mapPositionRisk(rows []*futures.PositionRisk, keepFlat bool) ([]trader.Position, error) {
	const op = "position risk"
	out := make([]trader.Position, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		qty, err := parseFloat(op, "positionAmt", r.PositionAmt)
		if err != nil {
			return nil, err
		}
		if qty == 0 && !keepFlat {
			continue
		}
		entry, err := parseFloat(op, "entryPrice", r.EntryPrice)
		if err != nil {
			return nil, err
		}
		mark, err := parseFloat(op, "markPrice", r.MarkPrice)
		if err != nil {
			return nil, err
		}
		pnl, err := parseFloat(op, "unRealizedProfit", r.UnRealizedProfit)
		if err != nil {
			return nil, err
		}
		leverage, err := strconv.Atoi(strings.TrimSpace(r.Leverage))
		if err != nil {
			return nil, trader.Malformed(op, "leverage", err)
		}
		out = append(out, trader.Position{
			Symbol:           symbol.Binance.FromExchange(r.Symbol),
			Quantity:         qty,
			EntryPrice:       entry,
			MarkPrice:        mark,
			UnrealizedProfit: pnl,
			Leverage:         leverage,
			MarginMode:       mapMarginType(r.MarginType),
		})
	}
	return out, nil
}

func mapMarginType(s string) trader.MarginMode {
	if strings.EqualFold(s, "isolated") {
		return trader.MarginIsolated
	}
	return trader.MarginCross
}

// mapSpotHoldings turns non-quote balances into positions quoted in quote.
func mapSpotHoldings(balances []gobinance.Balance, quote string) ([]trader.Position, error) {
	const op = "spot account"
	out := make([]trader.Position, 0, len(balances))
	for _, bal := range balances {
		if strings.EqualFold(bal.Asset, quote) {
			continue
		}
		free, err := parseDecimal(op, "free", bal.Free)
		if err != nil {
			return nil, err
		}
		locked, err := parseDecimal(op, "locked", bal.Locked)
		if err != nil {
			return nil, err
		}
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		out = append(out, trader.Position{
			Symbol:   strings.ToUpper(bal.Asset) + "/" + quote,
			Name:     strings.ToUpper(bal.Asset),
			Quantity: total.InexactFloat64(),
		})
	}
	return out, nil
}

func mapSpotBalance(balances []gobinance.Balance, quote string) (trader.Balance, error) {
	const op = "spot account"
	for _, bal := range balances {
		if !strings.EqualFold(bal.Asset, quote) {
			continue
		}
		free, err := parseDecimal(op, "free", bal.Free)
		if err != nil {
			return trader.Balance{}, err
		}
		locked, err := parseDecimal(op, "locked", bal.Locked)
		if err != nil {
			return trader.Balance{}, err
		}
		return trader.Balance{Asset: quote, Total: free.Add(locked).InexactFloat64(), Available: free.InexactFloat64()}, nil
	}
	return trader.Balance{Asset: quote}, nil
}

func mapFuturesBalance(rows []*futures.Balance, quote string) (trader.Balance, error) {
	const op = "futures balance"
	for _, r := range rows {
		if r == nil || !strings.EqualFold(r.Asset, quote) {
			continue
		}
		total, err := parseFloat(op, "balance", r.Balance)
		if err != nil {
			return trader.Balance{}, err
		}
		avail, err := parseFloat(op, "availableBalance", r.AvailableBalance)
		if err != nil {
			return trader.Balance{}, err
		}
		return trader.Balance{Asset: quote, Total: total, Available: avail}, nil
	}
	return trader.Balance{Asset: quote}, nil
}

type rawKline struct {
	OpenTime, CloseTime            int64
	Open, High, Low, Close, Volume string
}

func mapKlines(rows []rawKline) ([]trader.Candle, error) {
	const op = "klines"
	out := make([]trader.Candle, 0, len(rows))
	for _, k := range rows {
		var (
			c   = trader.Candle{OpenTime: millis(k.OpenTime), CloseTime: millis(k.CloseTime)}
			err error
		)
		if c.Open, err = parseFloat(op, "open", k.Open); err != nil {
			return nil, err
		}
		if c.High, err = parseFloat(op, "high", k.High); err != nil {
			return nil, err
		}
		if c.Low, err = parseFloat(op, "low", k.Low); err != nil {
			return nil, err
		}
		if c.Close, err = parseFloat(op, "close", k.Close); err != nil {
			return nil, err
		}
		if c.Volume, err = parseFloat(op, "volume", k.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
