package creon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"supertrader/internal/pkg/convert"
	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

// CpTd0311 order inputs.
const (
	orderSideSell = "1"
	orderSideBuy  = "2"

	orderCondNone   = "0"
	orderKindLimit  = "01"
	orderKindMarket = "03"

	orderHeaderNumber = 8
)

// CpTd5339 open order fields.
const (
	openMaxRows    = 20
	openHeaderRows = 5

	openDataNumber   = 1
	openDataCode     = 3
	openDataQuantity = 6
	openDataPrice    = 7
	openDataExecuted = 8
	openDataSide     = 13
)

// CpTd5341 today's order and fill fields.
const (
	fillMaxRows    = 20
	fillHeaderRows = 6

	fillDataNumber    = 1
	fillDataCode      = 3
	fillDataQuantity  = 7
	fillDataPrice     = 8
	fillDataExecuted  = 10
	fillDataExecPrice = 11
	fillDataSide      = 35
)

func (b *Broker) SubmitOrder(_ context.Context, req trader.OrderRequest) (trader.OrderAck, error) {
	if err := b.ready(); err != nil {
		return trader.OrderAck{}, err
	}
	qty, err := wholeShares(req.Quantity)
	if err != nil {
		return trader.OrderAck{}, err
	}
	side := orderSideBuy
	if req.Side == trader.SideSell {
		side = orderSideSell
	}
	kind, price := orderKindMarket, int64(0)
	if !req.Price.IsMarket() {
		kind, price = orderKindLimit, int64(math.Round(req.Price.Limit))
	}
	r := b.req("CpTd0311", b.order)
	err = b.send(r,
		input{0, side},
		input{1, b.account},
		input{2, b.goods},
		input{3, symbol.Creon.ToExchange(req.Symbol)},
		input{4, qty},
		input{5, price},
		input{7, orderCondNone},
		input{8, kind},
	)
	if err != nil {
		return trader.OrderAck{}, err
	}
	num, err := r.header(orderHeaderNumber)
	if err != nil {
		return trader.OrderAck{}, err
	}
	id := convert.String(num)
	if id == "" || id == "0" {
		return trader.OrderAck{}, trader.Malformed("CpTd0311", "order number", nil)
	}
	return trader.OrderAck{OrderID: id, Symbol: req.Symbol, SubmittedAt: b.now()}, nil
}

func wholeShares(q float64) (int64, error) {
	if q <= 0 || q != math.Trunc(q) {
		return 0, fmt.Errorf("%w: stock quantity must be a positive whole number, got %v", trader.ErrInvalidOrder, q)
	}
	return int64(q), nil
}

func (b *Broker) OpenOrders(_ context.Context, sym string) ([]trader.OrderReport, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	want := ""
	if sym != "" && sym != trader.AllSymbols {
		want = symbol.Creon.ToExchange(sym)
	}
	var out []trader.OrderReport
	r := b.req("CpTd5339", b.openOrders)
	err := b.sendPaged(r, func(int) error {
		rows, err := r.headerInt(openHeaderRows)
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			rep, err := readOrderRow(r, i, orderRowFields{
				number: openDataNumber, code: openDataCode, qty: openDataQuantity,
				price: openDataPrice, executed: openDataExecuted, side: openDataSide,
			})
			if err != nil {
				return err
			}
			if want != "" && rep.Symbol != want {
				continue
			}
			rep.Status = trader.StatusNew
			if rep.ExecutedQty > 0 {
				rep.Status = trader.StatusPartiallyFilled
			}
			out = append(out, rep)
		}
		return nil
	}, input{0, b.account}, input{1, b.goods}, input{4, "0"}, input{5, "1"}, input{6, "0"}, input{7, openMaxRows})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OrderStatus looks the order up in today's order history. An order that is
// neither fully executed nor still open is reported as cancelled.
func (b *Broker) OrderStatus(ctx context.Context, sym, orderID string) (trader.OrderReport, error) {
	if err := b.ready(); err != nil {
		return trader.OrderReport{}, err
	}
	code := symbol.Creon.ToExchange(sym)
	var (
		rep   trader.OrderReport
		found bool
	)
	r := b.req("CpTd5341", b.fills)
	err := b.sendPaged(r, func(int) error {
		rows, err := r.headerInt(fillHeaderRows)
		if err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			row, err := readOrderRow(r, i, orderRowFields{
				number: fillDataNumber, code: fillDataCode, qty: fillDataQuantity,
				price: fillDataPrice, executed: fillDataExecuted, side: fillDataSide,
			})
			if err != nil {
				return err
			}
			if row.OrderID != orderID {
				continue
			}
			if row.AvgPrice, err = r.dataFloat(fillDataExecPrice, i); err != nil {
				return err
			}
			rep, found = row, true
			return errStopPaging
		}
		return nil
	}, input{0, b.account}, input{1, b.goods}, input{2, code}, input{5, fillMaxRows})
	if err != nil {
		return trader.OrderReport{}, err
	}
	if !found {
		return trader.OrderReport{}, fmt.Errorf("creon: order %s not found in today's orders for %s", orderID, code)
	}
	if rep.ExecutedQty >= rep.OrigQty {
		rep.Status = trader.StatusFilled
		rep.FilledAt = b.now()
		return rep, nil
	}
	open, err := b.OpenOrders(ctx, sym)
	if err != nil {
		return trader.OrderReport{}, err
	}
	rep.Status = trader.StatusCanceled
	for _, o := range open {
		if o.OrderID == orderID {
			rep.Status = o.Status
		}
	}
	return rep, nil
}

type orderRowFields struct {
	number, code, qty, price, executed, side int
}

func readOrderRow(r request, row int, f orderRowFields) (trader.OrderReport, error) {
	rep := trader.OrderReport{Broker: brokerName, Type: trader.OrderTypeLimit}
	num, err := r.data(f.number, row)
	if err != nil {
		return rep, err
	}
	if n, ok := convert.Int64(num); ok && n > 0 {
		rep.OrderID = strconv.FormatInt(n, 10)
	} else {
		return rep, trader.Malformed(r.name, "order number", nil)
	}
	if rep.Symbol, err = r.dataString(f.code, row); err != nil {
		return rep, err
	}
	if rep.OrigQty, err = r.dataFloat(f.qty, row); err != nil {
		return rep, err
	}
	if rep.Price, err = r.dataFloat(f.price, row); err != nil {
		return rep, err
	}
	if rep.ExecutedQty, err = r.dataFloat(f.executed, row); err != nil {
		return rep, err
	}
	if rep.Price == 0 {
		rep.Type = trader.OrderTypeMarket
	}
	side, err := r.data(f.side, row)
	if err != nil {
		return rep, err
	}
	switch convert.String(side) {
	case orderSideSell:
		rep.Side = trader.SideSell
	case orderSideBuy:
		rep.Side = trader.SideBuy
	default:
		return rep, trader.Malformed(r.name, "side", nil)
	}
	return rep, nil
}

func (b *Broker) CancelOrder(_ context.Context, sym, orderID string) error {
	if err := b.ready(); err != nil {
		return err
	}
	num, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: order id %q is not numeric", trader.ErrInvalidOrder, orderID)
	}
	r := b.req("CpTd0314", b.cancel)
	// Quantity 0 cancels whatever remains of the order.
	return b.send(r,
		input{1, num},
		input{2, b.account},
		input{3, b.goods},
		input{4, symbol.Creon.ToExchange(sym)},
		input{5, 0},
	)
}

// CancelAllOrders cancels each open order for sym one by one.
func (b *Broker) CancelAllOrders(ctx context.Context, sym string) error {
	open, err := b.OpenOrders(ctx, sym)
	if err != nil {
		return err
	}
	var errs []error
	for _, o := range open {
		if err := b.CancelOrder(ctx, o.Symbol, o.OrderID); err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", o.OrderID, err))
		}
	}
	return errors.Join(errs...)
}
