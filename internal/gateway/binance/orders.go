package binance

import (
	"context"
	"strconv"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"supertrader/internal/pkg/symbol"
	"supertrader/internal/trader"
)

func (b *Broker) SubmitOrder(ctx context.Context, req trader.OrderRequest) (trader.OrderAck, error) {
	if err := b.wait(ctx); err != nil {
		return trader.OrderAck{}, err
	}
	sym := symbol.Binance.ToExchange(req.Symbol)
	if b.IsFuture() {
		return b.submitFutures(ctx, sym, req)
	}
	return b.submitSpot(ctx, sym, req)
}

func (b *Broker) submitFutures(ctx context.Context, sym string, req trader.OrderRequest) (trader.OrderAck, error) {
	side := futures.SideTypeBuy
	if req.Side == trader.SideSell {
		side = futures.SideTypeSell
	}
	svc := b.fut.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(formatQty(req.Quantity))
	if req.ClientID != "" {
		svc.NewClientOrderID(req.ClientID)
	}
	if req.Price.IsMarket() {
		svc.Type(futures.OrderTypeMarket)
	} else {
		svc.Type(futures.OrderTypeLimit).
			Price(formatQty(req.Price.Limit)).
			TimeInForce(futures.TimeInForceTypeGTC)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return trader.OrderAck{}, b.classify("create order", err)
	}
	if resp == nil || resp.OrderID == 0 {
		return trader.OrderAck{}, trader.Malformed("futures create order", "orderId", nil)
	}
	return trader.OrderAck{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      req.Symbol,
		SubmittedAt: millis(resp.UpdateTime),
	}, nil
}

func (b *Broker) submitSpot(ctx context.Context, sym string, req trader.OrderRequest) (trader.OrderAck, error) {
	side := gobinance.SideTypeBuy
	if req.Side == trader.SideSell {
		side = gobinance.SideTypeSell
	}
	svc := b.spot.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(formatQty(req.Quantity))
	if req.ClientID != "" {
		svc.NewClientOrderID(req.ClientID)
	}
	if req.Price.IsMarket() {
		svc.Type(gobinance.OrderTypeMarket)
	} else {
		svc.Type(gobinance.OrderTypeLimit).
			Price(formatQty(req.Price.Limit)).
			TimeInForce(gobinance.TimeInForceTypeGTC)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return trader.OrderAck{}, b.classify("create order", err)
	}
	if resp == nil || resp.OrderID == 0 {
		return trader.OrderAck{}, trader.Malformed("spot create order", "orderId", nil)
	}
	return trader.OrderAck{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      req.Symbol,
		SubmittedAt: millis(resp.TransactTime),
	}, nil
}

func (b *Broker) OrderStatus(ctx context.Context, sym, orderID string) (trader.OrderReport, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return trader.OrderReport{}, err
	}
	if err := b.wait(ctx); err != nil {
		return trader.OrderReport{}, err
	}
	exchangeSym := symbol.Binance.ToExchange(sym)
	if b.IsFuture() {
		o, err := b.fut.NewGetOrderService().Symbol(exchangeSym).OrderID(id).Do(ctx)
		if err != nil {
			return trader.OrderReport{}, b.classify("get order", err)
		}
		return mapFuturesOrder(o)
	}
	o, err := b.spot.NewGetOrderService().Symbol(exchangeSym).OrderID(id).Do(ctx)
	if err != nil {
		return trader.OrderReport{}, b.classify("get order", err)
	}
	return mapSpotOrder(o)
}

func (b *Broker) OpenOrders(ctx context.Context, sym string) ([]trader.OrderReport, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	exchangeSym := symbol.Binance.ToExchange(sym)
	var out []trader.OrderReport
	if b.IsFuture() {
		orders, err := b.fut.NewListOpenOrdersService().Symbol(exchangeSym).Do(ctx)
		if err != nil {
			return nil, b.classify("open orders", err)
		}
		for _, o := range orders {
			r, err := mapFuturesOrder(o)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}
	orders, err := b.spot.NewListOpenOrdersService().Symbol(exchangeSym).Do(ctx)
	if err != nil {
		return nil, b.classify("open orders", err)
	}
	for _, o := range orders {
		r, err := mapSpotOrder(o)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *Broker) CancelOrder(ctx context.Context, sym, orderID string) error {
	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	if err := b.wait(ctx); err != nil {
		return err
	}
	exchangeSym := symbol.Binance.ToExchange(sym)
	if b.IsFuture() {
		_, err = b.fut.NewCancelOrderService().Symbol(exchangeSym).OrderID(id).Do(ctx)
	} else {
		_, err = b.spot.NewCancelOrderService().Symbol(exchangeSym).OrderID(id).Do(ctx)
	}
	return b.classify("cancel order", err)
}

func (b *Broker) CancelAllOrders(ctx context.Context, sym string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	exchangeSym := symbol.Binance.ToExchange(sym)
	if b.IsFuture() {
		return b.classify("cancel all orders", b.fut.NewCancelAllOpenOrdersService().Symbol(exchangeSym).Do(ctx))
	}
	_, err := b.spot.NewCancelOpenOrdersService().Symbol(exchangeSym).Do(ctx)
	return b.classify("cancel all orders", err)
}
