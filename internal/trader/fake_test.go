package trader

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"supertrader/internal/logger"
)

type sentMessage struct {
	msg      string
	level    logger.Level
	external bool
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []sentMessage
}

func (r *recordingNotifier) Send(msg string, level logger.Level, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sentMessage{msg: msg, level: level, external: external})
}

func (r *recordingNotifier) has(msg string, external bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.msg == msg && m.external == external {
			return true
		}
	}
	return false
}

// fakeBroker fills every order immediately unless told otherwise and keeps
// positions in memory.
type fakeBroker struct {
	UnsupportedBroker

	caps        Capabilities
	prices      map[string]float64
	positions   map[string]float64
	leverage    map[string]int
	orders      map[string]OrderReport
	submitted   []OrderRequest
	failSymbols map[string]error
	// aliases maps caller spellings to the canonical symbol the fake keys
	// its books by, the way an exchange normalizes "BTCUSDT" or "005930".
	aliases     map[string]string
	verifyErr   error
	verifyCalls int
	// pendingPolls is how many status or open-order polls report the order
	// still working before it completes.
	pendingPolls int
	// statusErrs and openErrs are returned, in order, by the next polls.
	statusErrs   []error
	openErrs     []error
	finalStatus  OrderStatus
	nextID       int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		UnsupportedBroker: UnsupportedBroker{BrokerName: "fake"},
		caps: Capabilities{
			Leverage:        true,
			UnrealizedPnL:   true,
			ConfirmPolicies: []ConfirmPolicy{ConfirmFilled, ConfirmNoOpenOrders},
			DefaultConfirm:  ConfirmFilled,
		},
		prices:      map[string]float64{"BTC/USDT": 42000},
		positions:   map[string]float64{},
		leverage:    map[string]int{},
		orders:      map[string]OrderReport{},
		failSymbols: map[string]error{},
		aliases:     map[string]string{},
		finalStatus: StatusFilled,
	}
}

func (f *fakeBroker) canonical(symbol string) string {
	if c, ok := f.aliases[symbol]; ok {
		return c
	}
	return symbol
}

func (f *fakeBroker) Name() string               { return "fake" }
func (f *fakeBroker) Capabilities() Capabilities { return f.caps }

func (f *fakeBroker) Verify(context.Context) error {
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeBroker) SubmitOrder(_ context.Context, req OrderRequest) (OrderAck, error) {
	f.submitted = append(f.submitted, req)
	if err := f.failSymbols[req.Symbol]; err != nil {
		return OrderAck{}, err
	}
	sym := f.canonical(req.Symbol)
	f.nextID++
	id := strconv.Itoa(f.nextID)
	price := f.prices[sym]
	if !req.Price.IsMarket() {
		price = req.Price.Limit
	}
	report := OrderReport{
		Broker:   "fake",
		OrderID:  id,
		ClientID: req.ClientID,
		Type:     req.Price.OrderType(),
		Side:     req.Side,
		Symbol:   sym,
		Price:    req.Price.Limit,
		AvgPrice: price,
		OrigQty:  req.Quantity,
		Status:   f.finalStatus,
	}
	if f.finalStatus == StatusFilled {
		report.ExecutedQty = req.Quantity
		signed := req.Quantity
		if req.Side == SideSell {
			signed = -signed
		}
		f.positions[sym] += signed
		if f.positions[sym] == 0 {
			delete(f.positions, sym)
		}
	}
	f.orders[id] = report
	return OrderAck{OrderID: id, Symbol: sym}, nil
}

func (f *fakeBroker) OrderStatus(_ context.Context, _ string, orderID string) (OrderReport, error) {
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return OrderReport{}, err
	}
	report, ok := f.orders[orderID]
	if !ok {
		return OrderReport{}, fmt.Errorf("order %s not found", orderID)
	}
	if f.pendingPolls > 0 {
		f.pendingPolls--
		report.Status = StatusNew
		report.ExecutedQty = 0
	}
	return report, nil
}

func (f *fakeBroker) OpenOrders(_ context.Context, symbol string) ([]OrderReport, error) {
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		return nil, err
	}
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return []OrderReport{{Symbol: symbol, Status: StatusNew}}, nil
	}
	return nil, nil
}

func (f *fakeBroker) CancelOrder(_ context.Context, _ string, orderID string) error {
	if _, ok := f.orders[orderID]; !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}

func (f *fakeBroker) Price(_ context.Context, symbol string) (float64, error) {
	p, ok := f.prices[f.canonical(symbol)]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s", symbol)
	}
	return p, nil
}

func (f *fakeBroker) QuoteBalance(context.Context) (Balance, error) {
	return Balance{Asset: "USDT", Total: 1000, Available: 900}, nil
}

func (f *fakeBroker) Positions(_ context.Context, symbol string) ([]Position, error) {
	if symbol != AllSymbols {
		symbol = f.canonical(symbol)
	}
	var out []Position
	for sym, qty := range f.positions {
		if symbol != AllSymbols && sym != symbol {
			continue
		}
		out = append(out, Position{Symbol: sym, Quantity: qty, UnrealizedProfit: qty * 10, Leverage: f.leverage[sym]})
	}
	if lev, ok := f.leverage[symbol]; ok && len(out) == 0 {
		out = append(out, Position{Symbol: symbol, Leverage: lev})
	}
	return out, nil
}

func (f *fakeBroker) AccountSnapshot(context.Context) (AccountSnapshot, error) {
	return AccountSnapshot{AccountName: "demo", TotalAsset: 1500, Cash: 900, Positions: []Position{{Symbol: "A005930", Name: "Samsung", Quantity: 3}}}, nil
}

type mockBroker struct {
	mock.Mock
	UnsupportedBroker
}

func (m *mockBroker) Name() string { return "mock" }

func (m *mockBroker) Capabilities() Capabilities {
	return Capabilities{ConfirmPolicies: []ConfirmPolicy{ConfirmFilled}, DefaultConfirm: ConfirmFilled}
}

func (m *mockBroker) Verify(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBroker) SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(OrderAck), args.Error(1)
}

func (m *mockBroker) OrderStatus(ctx context.Context, symbol, orderID string) (OrderReport, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Get(0).(OrderReport), args.Error(1)
}

func (m *mockBroker) OpenOrders(ctx context.Context, symbol string) ([]OrderReport, error) {
	args := m.Called(ctx, symbol)
	reports, _ := args.Get(0).([]OrderReport)
	return reports, args.Error(1)
}

func (m *mockBroker) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return m.Called(ctx, symbol, orderID).Error(0)
}

func (m *mockBroker) Price(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockBroker) QuoteBalance(ctx context.Context) (Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(Balance), args.Error(1)
}

func (m *mockBroker) Positions(ctx context.Context, symbol string) ([]Position, error) {
	args := m.Called(ctx, symbol)
	positions, _ := args.Get(0).([]Position)
	return positions, args.Error(1)
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func testOptions(rec *sleepRecorder) Options {
	opts := DefaultOptions()
	opts.Sleep = rec.sleep
	opts.Now = func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) }
	return opts
}
