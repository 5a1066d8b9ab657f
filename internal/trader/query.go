package trader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"supertrader/internal/gateway/notifier"
)

// Every accessor below is one broker round-trip; nothing is cached.

func (t *Trader) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return t.broker.Price(ctx, symbol)
}

func (t *Trader) QuoteBalance(ctx context.Context) (Balance, error) {
	return t.broker.QuoteBalance(ctx)
}

// Holding returns the signed quantity held for symbol, zero when flat.
func (t *Trader) Holding(ctx context.Context, symbol string) (float64, error) {
	pos, ok, err := t.position(ctx, symbol)
	if err != nil || !ok {
		return 0, err
	}
	return pos.Quantity, nil
}

// Holdings lists nonzero positions for symbol, or every symbol for AllSymbols.
func (t *Trader) Holdings(ctx context.Context, symbol string) ([]Position, error) {
	positions, err := t.broker.Positions(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := positions[:0:0]
	for _, p := range positions {
		if p.Quantity != 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (t *Trader) UnrealizedProfit(ctx context.Context, symbol string) (float64, error) {
	if !t.broker.Capabilities().UnrealizedPnL {
		return 0, Unsupported(t.broker.Name(), "UnrealizedProfit")
	}
	pos, ok, err := t.position(ctx, symbol)
	if err != nil || !ok {
		return 0, err
	}
	return pos.UnrealizedProfit, nil
}

func (t *Trader) Leverage(ctx context.Context, symbol string) (int, error) {
	if !t.broker.Capabilities().Leverage {
		return 0, Unsupported(t.broker.Name(), "Leverage")
	}
	pos, ok, err := t.position(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !ok || pos.Leverage <= 0 {
		return 0, Malformed("Leverage", "leverage", nil)
	}
	return pos.Leverage, nil
}

// position relies on the broker's per-symbol filter. Rows carry the
// exchange's canonical symbol, which may differ from the caller's spelling
// ("005930" vs "A005930"). A nonzero row wins over a flat hedge-mode twin.
func (t *Trader) position(ctx context.Context, symbol string) (Position, bool, error) {
	if symbol == AllSymbols {
		return Position{}, false, fmt.Errorf("%w: query takes one symbol, use Holdings for %q", ErrInvalidOrder, AllSymbols)
	}
	positions, err := t.broker.Positions(ctx, symbol)
	if err != nil || len(positions) == 0 {
		return Position{}, false, err
	}
	for _, p := range positions {
		if p.Quantity != 0 {
			return p, true, nil
		}
	}
	return positions[0], true, nil
}

// Snapshot fetches the extended account view. With display set, a readable
// summary is also sent through the notifier.
func (t *Trader) Snapshot(ctx context.Context, display bool) (AccountSnapshot, error) {
	snap, err := t.broker.AccountSnapshot(ctx)
	if err != nil {
		return AccountSnapshot{}, err
	}
	if display {
		t.info(renderSnapshot(snap, t.opts.Now()), false)
	}
	return snap, nil
}

func (t *Trader) Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	if !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("%w: candle range ends before it starts", ErrInvalidOrder)
	}
	return t.broker.Candles(ctx, symbol, interval, start, end)
}

func renderSnapshot(s AccountSnapshot, now time.Time) string {
	account := []string{
		"account: " + s.AccountName,
		"total asset: " + formatFloat(s.TotalAsset),
		"profit: " + formatFloat(s.Profit),
		fmt.Sprintf("return: %.2f%%", s.ReturnPct),
		"cash: " + formatFloat(s.Cash),
		"stock valuation: " + formatFloat(s.StockValuation),
	}
	holdings := make([]string, 0, len(s.Positions))
	for _, p := range s.Positions {
		name := p.Symbol
		if p.Name != "" {
			name = p.Name + " (" + p.Symbol + ")"
		}
		holdings = append(holdings, fmt.Sprintf("%s qty: %s", name, formatFloat(p.Quantity)))
	}
	msg := notifier.StructuredMessage{
		Title: "Account snapshot",
		Sections: []notifier.MessageSection{
			{Title: "Account", Lines: account},
			{Title: "Holdings", Lines: holdings},
		},
		Timestamp: now,
	}
	return msg.Render()
}
