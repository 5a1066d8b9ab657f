package creon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supertrader/internal/trader"
)

var fixedNow = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

func newVerifiedBroker(t *testing.T, d *fakeDispatcher) *Broker {
	t.Helper()
	b, err := New(d, Config{AccountIndex: 0, GoodsFilter: 1},
		WithElevationCheck(func() bool { return true }),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	require.NoError(t, b.Verify(context.Background()))
	return b
}

func TestVerifySelectsAccount(t *testing.T) {
	d := newFakeDispatcher()
	b := newVerifiedBroker(t, d)
	assert.Equal(t, "333000111", b.account)
	assert.Equal(t, "01", b.goods)
	assert.Equal(t, trader.ConfirmNoOpenOrders, b.Capabilities().DefaultConfirm)
}

func TestVerifyFailsFast(t *testing.T) {
	cases := map[string]struct {
		elevated bool
		mutate   func(d *fakeDispatcher)
		want     string
	}{
		"not elevated": {elevated: false, want: "administrator"},
		"disconnected": {elevated: true, mutate: func(d *fakeDispatcher) {
			d.obj(progCybos).props["IsConnect"] = int16(0)
		}, want: "not connected"},
		"trade init": {elevated: true, mutate: func(d *fakeDispatcher) {
			d.obj(progTdUtil).props["TradeInit"] = int16(-1)
		}, want: "trade session"},
		"no account": {elevated: true, mutate: func(d *fakeDispatcher) {
			d.obj(progTdUtil).props["AccountNumber"] = []any{}
		}, want: "account 0"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := newFakeDispatcher()
			if tc.mutate != nil {
				tc.mutate(d)
			}
			b, err := New(d, Config{}, WithElevationCheck(func() bool { return tc.elevated }))
			require.NoError(t, err)
			assert.ErrorContains(t, b.Verify(context.Background()), tc.want)
			if !tc.elevated {
				assert.Empty(t, d.obj(progTdUtil).calls, "later checks must not run")
			}
		})
	}
}

func TestNewReleasesOnFailure(t *testing.T) {
	d := newFakeDispatcher()
	d.failOn = progOrder
	_, err := New(d, Config{})
	require.Error(t, err)
	assert.True(t, d.obj(progCybos).released)
	assert.True(t, d.obj(progCash).released)
	assert.Equal(t, 1, d.closed)
}

func TestOperationsRequireVerify(t *testing.T) {
	b, err := New(newFakeDispatcher(), Config{})
	require.NoError(t, err)
	_, err = b.QuoteBalance(context.Background())
	assert.ErrorContains(t, err, "Verify")
}

func TestPriceAndCash(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progStockMst).onBlock = func(o *fakeObject) {
		if o.inputs[0] == "A005930" {
			o.headers[mstCurrentPrice] = int32(71500)
		}
	}
	d.obj(progCash).headers[cashHeaderOrderable] = int64(1250000)
	b := newVerifiedBroker(t, d)

	price, err := b.Price(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, 71500.0, price)

	bal, err := b.QuoteBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, trader.Balance{Asset: "KRW", Total: 1250000, Available: 1250000}, bal)
	assert.Equal(t, "333000111", d.obj(progCash).inputs[0])
}

func seedBalance(d *fakeDispatcher) {
	o := d.obj(progBalance)
	o.headers[balHeaderAccountName] = "demo"
	o.headers[balHeaderValuation] = int64(2145000)
	o.headers[balHeaderProfit] = int64(45000)
	o.headers[balHeaderReturnPct] = 2.14
	o.headers[balHeaderRows] = int32(2)
	rows := []struct {
		code, name string
		qty        int32
		profit     int64
		book       float64
	}{
		{"A005930", "Samsung Electronics", 30, 45000, 70000},
		{"A000660", "SK hynix", 0, 0, 0},
	}
	for i, r := range rows {
		o.data[[2]int{balDataCode, i}] = r.code
		o.data[[2]int{balDataName, i}] = r.name
		o.data[[2]int{balDataQuantity, i}] = r.qty
		o.data[[2]int{balDataProfit, i}] = r.profit
		o.data[[2]int{balDataBookPrice, i}] = r.book
	}
}

func TestPositionsAndSnapshot(t *testing.T) {
	d := newFakeDispatcher()
	seedBalance(d)
	d.obj(progCash).headers[cashHeaderOrderable] = int64(500000)
	b := newVerifiedBroker(t, d)
	ctx := context.Background()

	held, err := b.Positions(ctx, trader.AllSymbols)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, trader.Position{Symbol: "A005930", Name: "Samsung Electronics", Quantity: 30, EntryPrice: 70000, UnrealizedProfit: 45000}, held[0])

	one, err := b.Positions(ctx, "005930")
	require.NoError(t, err)
	assert.Len(t, one, 1)
	none, err := b.Positions(ctx, "A000660")
	require.NoError(t, err)
	assert.Empty(t, none)

	snap, err := b.AccountSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demo", snap.AccountName)
	assert.Equal(t, 2645000.0, snap.TotalAsset)
	assert.Equal(t, 2.14, snap.ReturnPct)
	assert.Equal(t, 50, d.obj(progBalance).inputs[2])
}

func TestSubmitOrderInputs(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progOrder).headers[orderHeaderNumber] = int32(9001)
	b := newVerifiedBroker(t, d)

	ack, err := b.SubmitOrder(context.Background(), trader.OrderRequest{Symbol: "A005930", Side: trader.SideSell, Quantity: 10, Price: trader.Market})
	require.NoError(t, err)
	assert.Equal(t, trader.OrderAck{OrderID: "9001", Symbol: "A005930", SubmittedAt: fixedNow}, ack)

	in := d.obj(progOrder).inputs
	assert.Equal(t, "1", in[0])
	assert.Equal(t, "333000111", in[1])
	assert.Equal(t, "01", in[2])
	assert.Equal(t, "A005930", in[3])
	assert.Equal(t, int64(10), in[4])
	assert.Equal(t, int64(0), in[5])
	assert.Equal(t, "03", in[8])

	_, err = b.SubmitOrder(context.Background(), trader.OrderRequest{Symbol: "A005930", Side: trader.SideBuy, Quantity: 3, Price: trader.Limit(70100)})
	require.NoError(t, err)
	assert.Equal(t, "2", in[0])
	assert.Equal(t, int64(70100), in[5])
	assert.Equal(t, "01", in[8])
}

func TestSubmitOrderRejectsFractionalShares(t *testing.T) {
	b := newVerifiedBroker(t, newFakeDispatcher())
	_, err := b.SubmitOrder(context.Background(), trader.OrderRequest{Symbol: "A005930", Side: trader.SideBuy, Quantity: 1.5})
	assert.ErrorIs(t, err, trader.ErrInvalidOrder)
}

func TestSubmitOrderRateLimited(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progOrder).codes = []int{blockRateLimited}
	b := newVerifiedBroker(t, d)

	_, err := b.SubmitOrder(context.Background(), trader.OrderRequest{Symbol: "A005930", Side: trader.SideBuy, Quantity: 1})
	var limited *trader.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 350*time.Millisecond, limited.Cooldown)
}

func TestExecuteRetriesThroughTrader(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progOrder).codes = []int{blockRateLimited, blockRateLimited}
	d.obj(progOrder).headers[orderHeaderNumber] = int32(77)
	fills := d.obj(progFills)
	fills.headers[fillHeaderRows] = int32(1)
	fills.data[[2]int{fillDataNumber, 0}] = int32(77)
	fills.data[[2]int{fillDataCode, 0}] = "A005930"
	fills.data[[2]int{fillDataQuantity, 0}] = int32(5)
	fills.data[[2]int{fillDataPrice, 0}] = int32(0)
	fills.data[[2]int{fillDataExecuted, 0}] = int32(5)
	fills.data[[2]int{fillDataExecPrice, 0}] = int32(71000)
	fills.data[[2]int{fillDataSide, 0}] = "2"
	d.obj(progOpenOrders).headers[openHeaderRows] = int32(0)

	b, err := New(d, Config{}, WithElevationCheck(func() bool { return true }))
	require.NoError(t, err)

	var slept []time.Duration
	opts := trader.DefaultOptions()
	opts.Sleep = func(ctx context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}
	tr, err := trader.New(context.Background(), b, trader.AlwaysOpen{}, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, trader.ConfirmNoOpenOrders, tr.ConfirmPolicy())

	report, err := tr.Execute(context.Background(), "005930", 5, trader.Market)
	require.NoError(t, err)
	assert.Equal(t, trader.StatusFilled, report.Status)
	assert.Equal(t, 71000.0, report.AvgPrice)
	assert.Equal(t, trader.OrderTypeMarket, report.Type)
	assert.Equal(t, []time.Duration{350 * time.Millisecond, 350 * time.Millisecond, 100 * time.Millisecond}, slept)
}

func TestOrderStatusPartiallyCancelled(t *testing.T) {
	d := newFakeDispatcher()
	fills := d.obj(progFills)
	fills.headers[fillHeaderRows] = int32(1)
	fills.data[[2]int{fillDataNumber, 0}] = int32(12)
	fills.data[[2]int{fillDataCode, 0}] = "A005930"
	fills.data[[2]int{fillDataQuantity, 0}] = int32(10)
	fills.data[[2]int{fillDataPrice, 0}] = int32(70000)
	fills.data[[2]int{fillDataExecuted, 0}] = int32(4)
	fills.data[[2]int{fillDataExecPrice, 0}] = int32(70000)
	fills.data[[2]int{fillDataSide, 0}] = "1"
	d.obj(progOpenOrders).headers[openHeaderRows] = int32(0)
	b := newVerifiedBroker(t, d)

	rep, err := b.OrderStatus(context.Background(), "A005930", "12")
	require.NoError(t, err)
	assert.Equal(t, trader.StatusCanceled, rep.Status)
	assert.Equal(t, trader.SideSell, rep.Side)
	assert.Equal(t, 4.0, rep.ExecutedQty)

	_, err = b.OrderStatus(context.Background(), "A005930", "13")
	assert.ErrorContains(t, err, "not found")
}

func TestCancelAllOrders(t *testing.T) {
	d := newFakeDispatcher()
	open := d.obj(progOpenOrders)
	open.headers[openHeaderRows] = int32(2)
	for i, num := range []int32{31, 32} {
		open.data[[2]int{openDataNumber, i}] = num
		open.data[[2]int{openDataCode, i}] = "A005930"
		open.data[[2]int{openDataQuantity, i}] = int32(1)
		open.data[[2]int{openDataPrice, i}] = int32(70000)
		open.data[[2]int{openDataExecuted, i}] = int32(0)
		open.data[[2]int{openDataSide, i}] = "2"
	}
	b := newVerifiedBroker(t, d)

	require.NoError(t, b.CancelAllOrders(context.Background(), "A005930"))
	cancel := d.obj(progCancel)
	assert.Equal(t, int64(32), cancel.inputs[1])
	assert.Equal(t, 2, cancel.blocks())
}

type holdingRow struct {
	code, name string
	qty        int32
}

// balancePage loads one CpTd6033 response page.
func balancePage(more bool, rows ...holdingRow) func(o *fakeObject) {
	return func(o *fakeObject) {
		o.headers[balHeaderAccountName] = "demo"
		o.headers[balHeaderValuation] = int64(2145000)
		o.headers[balHeaderProfit] = int64(45000)
		o.headers[balHeaderReturnPct] = 2.14
		o.headers[balHeaderRows] = int32(len(rows))
		for i, r := range rows {
			o.data[[2]int{balDataCode, i}] = r.code
			o.data[[2]int{balDataName, i}] = r.name
			o.data[[2]int{balDataQuantity, i}] = r.qty
			o.data[[2]int{balDataProfit, i}] = int64(0)
			o.data[[2]int{balDataBookPrice, i}] = 1000.0
		}
		o.props["Continue"] = int32(0)
		if more {
			o.props["Continue"] = int32(1)
		}
	}
}

type orderRow struct {
	number         int32
	qty, executed  int32
	code, sideCode string
}

// orderPage loads one CpTd5339 or CpTd5341 response page.
func orderPage(more bool, headerRows int, f orderRowFields, rows ...orderRow) func(o *fakeObject) {
	return func(o *fakeObject) {
		o.headers[headerRows] = int32(len(rows))
		for i, r := range rows {
			o.data[[2]int{f.number, i}] = r.number
			o.data[[2]int{f.code, i}] = r.code
			o.data[[2]int{f.qty, i}] = r.qty
			o.data[[2]int{f.price, i}] = int32(70000)
			o.data[[2]int{f.executed, i}] = r.executed
			o.data[[2]int{f.side, i}] = r.sideCode
		}
		o.props["Continue"] = int32(0)
		if more {
			o.props["Continue"] = int32(1)
		}
	}
}

var (
	openFields = orderRowFields{number: openDataNumber, code: openDataCode, qty: openDataQuantity,
		price: openDataPrice, executed: openDataExecuted, side: openDataSide}
	fillFields = orderRowFields{number: fillDataNumber, code: fillDataCode, qty: fillDataQuantity,
		price: fillDataPrice, executed: fillDataExecuted, side: fillDataSide}
)

func TestBalanceReadsEveryPage(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progBalance).pages = []func(o *fakeObject){
		balancePage(true, holdingRow{"A005930", "Samsung Electronics", 30}, holdingRow{"A035720", "Kakao", 0}),
		balancePage(false, holdingRow{"A000660", "SK hynix", 12}),
	}
	b := newVerifiedBroker(t, d)

	held, err := b.Positions(context.Background(), trader.AllSymbols)
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.Equal(t, "A005930", held[0].Symbol)
	assert.Equal(t, "A000660", held[1].Symbol)
	assert.Equal(t, 12.0, held[1].Quantity)
	assert.Equal(t, 2, d.obj(progBalance).blocks())
}

func TestOpenOrdersReadEveryPage(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progOpenOrders).pages = []func(o *fakeObject){
		orderPage(true, openHeaderRows, openFields, orderRow{41, 10, 0, "A005930", "2"}),
		orderPage(false, openHeaderRows, openFields, orderRow{42, 10, 3, "A005930", "1"}),
	}
	b := newVerifiedBroker(t, d)

	open, err := b.OpenOrders(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "42", open[1].OrderID)
	assert.Equal(t, trader.StatusPartiallyFilled, open[1].Status)
}

func TestOrderStatusFindsOrderOnLaterPage(t *testing.T) {
	d := newFakeDispatcher()
	fills := d.obj(progFills)
	fills.pages = []func(o *fakeObject){
		orderPage(true, fillHeaderRows, fillFields, orderRow{51, 5, 5, "A005930", "2"}),
		orderPage(true, fillHeaderRows, fillFields, orderRow{52, 5, 5, "A005930", "2"}),
		orderPage(false, fillHeaderRows, fillFields, orderRow{53, 5, 5, "A005930", "2"}),
	}
	fills.data[[2]int{fillDataExecPrice, 0}] = int32(70100)
	b := newVerifiedBroker(t, d)

	rep, err := b.OrderStatus(context.Background(), "A005930", "52")
	require.NoError(t, err)
	assert.Equal(t, trader.StatusFilled, rep.Status)
	assert.Equal(t, 70100.0, rep.AvgPrice)
	assert.Equal(t, 2, fills.blocks(), "paging stops once the order is found")
}

func TestPagingIsBounded(t *testing.T) {
	d := newFakeDispatcher()
	d.obj(progOpenOrders).props["Continue"] = int32(1)
	d.obj(progOpenOrders).headers[openHeaderRows] = int32(0)
	b := newVerifiedBroker(t, d)

	_, err := b.OpenOrders(context.Background(), trader.AllSymbols)
	assert.ErrorContains(t, err, "pages")
	assert.Equal(t, maxPages, d.obj(progOpenOrders).blocks())
}

func TestTraderResolvesBareStockCode(t *testing.T) {
	d := newFakeDispatcher()
	seedBalance(d)
	d.obj(progOrder).headers[orderHeaderNumber] = int32(88)
	d.obj(progFills).pages = []func(o *fakeObject){
		orderPage(false, fillHeaderRows, fillFields, orderRow{88, 30, 30, "A005930", "1"}),
	}
	d.obj(progFills).data[[2]int{fillDataExecPrice, 0}] = int32(70500)
	d.obj(progOpenOrders).headers[openHeaderRows] = int32(0)
	b, err := New(d, Config{}, WithElevationCheck(func() bool { return true }))
	require.NoError(t, err)

	opts := trader.DefaultOptions()
	opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	tr, err := trader.New(context.Background(), b, trader.AlwaysOpen{}, nil, opts)
	require.NoError(t, err)
	ctx := context.Background()

	for _, code := range []string{"005930", "A005930"} {
		qty, err := tr.Holding(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, 30.0, qty, code)
	}

	report, err := tr.ClosePosition(ctx, "005930")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, trader.SideSell, report.Side)
	assert.Equal(t, 30.0, report.ExecutedQty)
	order := d.obj(progOrder)
	assert.Equal(t, orderSideSell, order.inputs[0])
	assert.Equal(t, "A005930", order.inputs[3])
	assert.Equal(t, int64(30), order.inputs[4])
}

func TestCloseReleasesHandles(t *testing.T) {
	d := newFakeDispatcher()
	b := newVerifiedBroker(t, d)
	require.NoError(t, b.Close())
	for id, o := range d.objects {
		assert.True(t, o.released, id)
	}
	require.NoError(t, b.Close())
	assert.Equal(t, 1, d.closed, "dispatcher closed exactly once")
}
