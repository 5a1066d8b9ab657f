package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

const maxHistoryLimit = 1000

func (b *Broker) Candles(ctx context.Context, sym, interval string, start, end time.Time) ([]trader.Candle, error) {
	exchangeSym := symbol.Binance.ToExchange(sym)
	if exchangeSym == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	var rows []rawKline
	if b.IsFuture() {
		svc := b.fut.NewKlinesService().Symbol(exchangeSym).Interval(interval).Limit(maxHistoryLimit)
		if !start.IsZero() {
			svc.StartTime(start.UnixMilli())
		}
		if !end.IsZero() {
			svc.EndTime(end.UnixMilli())
		}
		kls, err := svc.Do(ctx)
		if err != nil {
			return nil, b.classify("klines", err)
		}
		for _, kl := range kls {
			if kl != nil {
				rows = append(rows, rawKline{kl.OpenTime, kl.CloseTime, kl.Open, kl.High, kl.Low, kl.Close, kl.Volume})
			}
		}
	} else {
		svc := b.spot.NewKlinesService().Symbol(exchangeSym).Interval(interval).Limit(maxHistoryLimit)
		if !start.IsZero() {
			svc.StartTime(start.UnixMilli())
		}
		if !end.IsZero() {
			svc.EndTime(end.UnixMilli())
		}
		kls, err := svc.Do(ctx)
		if err != nil {
			return nil, b.classify("klines", err)
		}
		for _, kl := range kls {
			if kl != nil {
				rows = append(rows, rawKline{kl.OpenTime, kl.CloseTime, kl.Open, kl.High, kl.Low, kl.Close, kl.Volume})
			}
		}
	}
	return mapKlines(rows)
}
