package creon

import (
	"context"

	"supertrader/internal/pkg/convert"
	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

// StockMst header fields.
const mstCurrentPrice = 11

// CpTd6033 balance fields.
const (
	balanceMaxRows = 50

	balHeaderAccountName = 0
	balHeaderValuation   = 3
	balHeaderProfit      = 4
	balHeaderRows        = 7
	balHeaderReturnPct   = 8

	balDataName      = 0
	balDataProfit    = 10
	balDataCode      = 12
	balDataQuantity  = 15
	balDataBookPrice = 17
)

// CpTdNew5331A header field holding orderable cash.
const cashHeaderOrderable = 9

func (b *Broker) Price(_ context.Context, sym string) (float64, error) {
	r := b.req("StockMst", b.stockMst)
	if err := b.send(r, input{0, symbol.Creon.ToExchange(sym)}); err != nil {
		return 0, err
	}
	return r.headerFloat(mstCurrentPrice)
}

// QuoteBalance reports orderable cash in KRW.
func (b *Broker) QuoteBalance(context.Context) (trader.Balance, error) {
	if err := b.ready(); err != nil {
		return trader.Balance{}, err
	}
	cash, err := b.orderableCash()
	if err != nil {
		return trader.Balance{}, err
	}
	return trader.Balance{Asset: quoteAsset, Total: cash, Available: cash}, nil
}

func (b *Broker) orderableCash() (float64, error) {
	r := b.req("CpTdNew5331A", b.cash)
	if err := b.send(r, input{0, b.account}, input{1, b.goods}); err != nil {
		return 0, err
	}
	return r.headerFloat(cashHeaderOrderable)
}

func (b *Broker) Positions(_ context.Context, sym string) ([]trader.Position, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	_, held, err := b.readBalance()
	if err != nil || sym == trader.AllSymbols {
		return held, err
	}
	code := symbol.Creon.ToExchange(sym)
	for _, p := range held {
		if p.Symbol == code {
			return []trader.Position{p}, nil
		}
	}
	return nil, nil
}

func (b *Broker) AccountSnapshot(context.Context) (trader.AccountSnapshot, error) {
	if err := b.ready(); err != nil {
		return trader.AccountSnapshot{}, err
	}
	snap, held, err := b.readBalance()
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	cash, err := b.orderableCash()
	if err != nil {
		return trader.AccountSnapshot{}, err
	}
	snap.Cash = cash
	snap.TotalAsset = snap.StockValuation + cash
	snap.Positions = held
	return snap, nil
}

func (b *Broker) readBalance() (trader.AccountSnapshot, []trader.Position, error) {
	var snap trader.AccountSnapshot
	held := make([]trader.Position, 0)
	r := b.req("CpTd6033", b.balance)
	err := b.sendPaged(r, func(page int) error {
		// Account totals repeat on every page; the first one is kept.
		if page == 0 {
			if err := readBalanceHeader(r, &snap); err != nil {
				return err
			}
		}
		rows, err := r.headerInt(balHeaderRows)
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			p, err := readBalanceRow(r, i)
			if err != nil {
				return err
			}
			if p.Quantity != 0 {
				held = append(held, p)
			}
		}
		return nil
	}, input{0, b.account}, input{1, b.goods}, input{2, balanceMaxRows})
	if err != nil {
		return trader.AccountSnapshot{}, nil, err
	}
	return snap, held, nil
}

func readBalanceHeader(r request, snap *trader.AccountSnapshot) error {
	name, err := r.header(balHeaderAccountName)
	if err != nil {
		return err
	}
	snap.AccountName = convert.String(name)
	if snap.StockValuation, err = r.headerFloat(balHeaderValuation); err != nil {
		return err
	}
	if snap.Profit, err = r.headerFloat(balHeaderProfit); err != nil {
		return err
	}
	snap.ReturnPct, err = r.headerFloat(balHeaderReturnPct)
	return err
}

func readBalanceRow(r request, i int) (trader.Position, error) {
	var (
		p   trader.Position
		err error
	)
	if p.Symbol, err = r.dataString(balDataCode, i); err != nil {
		return p, err
	}
	name, err := r.data(balDataName, i)
	if err != nil {
		return p, err
	}
	p.Name = convert.String(name)
	if p.Quantity, err = r.dataFloat(balDataQuantity, i); err != nil {
		return p, err
	}
	if p.UnrealizedProfit, err = r.dataFloat(balDataProfit, i); err != nil {
		return p, err
	}
	p.EntryPrice, err = r.dataFloat(balDataBookPrice, i)
	return p, err
}
