package binance

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

func (b *Broker) Price(ctx context.Context, sym string) (float64, error) {
	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	exchangeSym := symbol.Binance.ToExchange(sym)
	var (
		symbols []string
		prices  []string
	)
	if b.IsFuture() {
		res, err := b.fut.NewListPricesService().Symbol(exchangeSym).Do(ctx)
		if err != nil {
			return 0, b.classify("ticker price", err)
		}
		for _, p := range res {
			if p != nil {
				symbols, prices = append(symbols, p.Symbol), append(prices, p.Price)
			}
		}
	} else {
		res, err := b.spot.NewListPricesService().Symbol(exchangeSym).Do(ctx)
		if err != nil {
			return 0, b.classify("ticker price", err)
		}
		for _, p := range res {
			if p != nil {
				symbols, prices = append(symbols, p.Symbol), append(prices, p.Price)
			}
		}
	}
	for i, s := range symbols {
		if strings.EqualFold(s, exchangeSym) {
			return parseFloat("ticker price", "price", prices[i])
		}
	}
	return 0, trader.Malformed("ticker price", "price for "+exchangeSym, nil)
}

func (b *Broker) QuoteBalance(ctx context.Context) (trader.Balance, error) {
	if err := b.wait(ctx); err != nil {
		return trader.Balance{}, err
	}
	if b.IsFuture() {
		rows, err := b.fut.NewGetBalanceService().Do(ctx)
		if err != nil {
			return trader.Balance{}, b.classify("balance", err)
		}
		return mapFuturesBalance(rows, b.cfg.QuoteAsset)
	}
	acc, err := b.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return trader.Balance{}, b.classify("account", err)
	}
	if acc == nil {
		return trader.Balance{}, trader.Malformed("spot account", "balances", nil)
	}
	return mapSpotBalance(acc.Balances, b.cfg.QuoteAsset)
}

// Positions reads futures position risk, or spot balances as holdings quoted
// in the quote asset.
func (b *Broker) Positions(ctx context.Context, sym string) ([]trader.Position, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	all := sym == trader.AllSymbols
	if b.IsFuture() {
		svc := b.fut.NewGetPositionRiskService()
		if !all {
			svc.Symbol(symbol.Binance.ToExchange(sym))
		}
		rows, err := svc.Do(ctx)
		if err != nil {
			return nil, b.classify("position risk", err)
		}
		return mapPositionRisk(rows, !all)
	}
	acc, err := b.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, b.classify("account", err)
	}
	if acc == nil {
		return nil, trader.Malformed("spot account", "balances", nil)
	}
	held, err := mapSpotHoldings(acc.Balances, b.cfg.QuoteAsset)
	if err != nil || all {
		return held, err
	}
	want := symbol.Normalize(sym)
	for _, p := range held {
		if p.Symbol == want {
			return []trader.Position{p}, nil
		}
	}
	return nil, nil
}

func (b *Broker) SetLeverage(ctx context.Context, sym string, leverage int) error {
	if !b.IsFuture() {
		return trader.Unsupported("binance spot", "SetLeverage")
	}
	if err := b.wait(ctx); err != nil {
		return err
	}
	_, err := b.fut.NewChangeLeverageService().Symbol(symbol.Binance.ToExchange(sym)).Leverage(leverage).Do(ctx)
	return b.classify("change leverage", err)
}

func (b *Broker) SetMarginMode(ctx context.Context, sym string, mode trader.MarginMode) (bool, error) {
	if !b.IsFuture() {
		return false, trader.Unsupported("binance spot", "SetMarginMode")
	}
	marginType := futures.MarginTypeCrossed
	switch mode {
	case trader.MarginIsolated:
		marginType = futures.MarginTypeIsolated
	case trader.MarginCross:
	default:
		return false, fmt.Errorf("%w: unknown margin mode %q", trader.ErrInvalidOrder, mode)
	}
	if err := b.wait(ctx); err != nil {
		return false, err
	}
	err := b.fut.NewChangeMarginTypeService().Symbol(symbol.Binance.ToExchange(sym)).MarginType(marginType).Do(ctx)
	if apiCode(err) == codeNoNeedChangeMode {
		return false, nil
	}
	if err != nil {
		return false, b.classify("change margin type", err)
	}
	return true, nil
}

func (b *Broker) AccountSnapshot(ctx context.Context) (trader.AccountSnapshot, error) {
	if !b.IsFuture() {
		return trader.AccountSnapshot{}, trader.Unsupported("binance spot", "AccountSnapshot")
	}
	if err := b.wait(ctx); err != nil {
		return trader.AccountSnapshot{}, err
	}
	acc, err := b.fut.NewGetAccountService().Do(ctx)
	if err != nil {
		return trader.AccountSnapshot{}, b.classify("account", err)
	}
	snap, err := mapFuturesAccount(acc)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	positions, err := b.Positions(ctx, trader.AllSymbols)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	snap.Positions = positions
	return snap, nil
}

func mapFuturesAccount(acc *futures.Account) (trader.AccountSnapshot, error) {
	const op = "futures account"
	if acc == nil {
		return trader.AccountSnapshot{}, trader.Malformed(op, "account", nil)
	}
	wallet, err := parseFloat(op, "totalWalletBalance", acc.TotalWalletBalance)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	profit, err := parseFloat(op, "totalUnrealizedProfit", acc.TotalUnrealizedProfit)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	margin, err := parseFloat(op, "totalMarginBalance", acc.TotalMarginBalance)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	avail, err := parseFloat(op, "availableBalance", acc.AvailableBalance)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	posMargin, err := parseFloat(op, "totalPositionInitialMargin", acc.TotalPositionInitialMargin)
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	snap := trader.AccountSnapshot{
		AccountName:    "binance futures",
		TotalAsset:     margin,
		Profit:         profit,
		Cash:           avail,
		StockValuation: posMargin,
	}
	if wallet > 0 {
		snap.ReturnPct = profit / wallet * 100
	}
	return snap, nil
}
