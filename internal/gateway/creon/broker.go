package creon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supertrader/internal/config"
	"supertrader/internal/logger"
	"supertrader/internal/pkg/convert"
	"supertrader/internal/trader"
)

const (
	brokerName = "creon"
	quoteAsset = "KRW"

	defaultCooldown = time.Second
)

type Config struct {
	// AccountIndex picks one of the accounts signed into the terminal.
	AccountIndex int
	// GoodsFilter is the product flag passed to CpTdUtil.GoodsList (1 = stock).
	GoodsFilter int
}

func ConfigFrom(c config.CreonConfig) Config {
	return Config{AccountIndex: c.AccountIndex, GoodsFilter: c.GoodsFilter}
}

type Option func(*Broker)

// WithElevationCheck replaces the administrator-privilege check.
func WithElevationCheck(fn func() bool) Option {
	return func(b *Broker) {
		if fn != nil {
			b.elevated = fn
		}
	}
}

// WithClock sets the timestamp source for order acknowledgements.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// Broker owns one set of terminal objects. Handles are acquired in New and
// released in Close; nothing is shared between instances.
type Broker struct {
	trader.UnsupportedBroker

	cfg      Config
	disp     Dispatcher
	elevated func() bool
	now      func() time.Time

	cybos      Object
	tdUtil     Object
	stockMst   Object
	balance    Object
	cash       Object
	order      Object
	cancel     Object
	openOrders Object
	fills      Object

	account string
	goods   string
}

func New(disp Dispatcher, cfg Config, opts ...Option) (*Broker, error) {
	if disp == nil {
		return nil, errors.New("creon: dispatcher is required")
	}
	if cfg.GoodsFilter <= 0 {
		cfg.GoodsFilter = 1
	}
	b := &Broker{
		UnsupportedBroker: trader.UnsupportedBroker{BrokerName: brokerName},
		cfg:               cfg,
		disp:              disp,
		elevated:          processElevated,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	handles := []struct {
		progID string
		dst    *Object
	}{
		{progCybos, &b.cybos},
		{progTdUtil, &b.tdUtil},
		{progStockMst, &b.stockMst},
		{progBalance, &b.balance},
		{progCash, &b.cash},
		{progOrder, &b.order},
		{progCancel, &b.cancel},
		{progOpenOrders, &b.openOrders},
		{progFills, &b.fills},
	}
	for _, h := range handles {
		obj, err := disp.Create(h.progID)
		if err != nil {
			b.release()
			_ = disp.Close()
			return nil, fmt.Errorf("creon: create %s: %w", h.progID, err)
		}
		*h.dst = obj
	}
	return b, nil
}

func (b *Broker) Name() string { return brokerName }

func (b *Broker) Capabilities() trader.Capabilities {
	return trader.Capabilities{
		UnrealizedPnL:   true,
		ConfirmPolicies: []trader.ConfirmPolicy{trader.ConfirmNoOpenOrders, trader.ConfirmFilled},
		DefaultConfirm:  trader.ConfirmNoOpenOrders,
	}
}

// Verify runs every terminal check in order and stops at the first failure:
// elevation, connection, trade session, then account selection.
func (b *Broker) Verify(context.Context) error {
	if !b.elevated() {
		return errors.New("creon: process must run with administrator privileges")
	}
	connected, err := b.cybos.Get("IsConnect")
	if err != nil {
		return fmt.Errorf("creon: read IsConnect: %w", err)
	}
	if n, _ := convert.Int64(connected); n != 1 {
		return errors.New("creon: terminal is not connected")
	}
	ret, err := b.tdUtil.Call("TradeInit", 0)
	if err != nil {
		return fmt.Errorf("creon: TradeInit: %w", err)
	}
	if n, ok := convert.Int64(ret); !ok || n != 0 {
		return fmt.Errorf("creon: trade session initialization failed (code %v)", ret)
	}
	accounts, err := b.tdUtil.Get("AccountNumber")
	if err != nil {
		return fmt.Errorf("creon: read AccountNumber: %w", err)
	}
	account, err := pick(accounts, b.cfg.AccountIndex)
	if err != nil {
		return fmt.Errorf("creon: account %d: %w", b.cfg.AccountIndex, err)
	}
	goodsList, err := b.tdUtil.Get("GoodsList", account, b.cfg.GoodsFilter)
	if err != nil {
		return fmt.Errorf("creon: read GoodsList: %w", err)
	}
	goods, err := pick(goodsList, 0)
	if err != nil {
		return fmt.Errorf("creon: goods list for account %s: %w", account, err)
	}
	b.account, b.goods = account, goods
	logger.Debugf("creon: trading account %s goods %s", account, goods)
	return nil
}

func pick(v any, idx int) (string, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case string:
		items = []any{t}
	}
	if idx < 0 || idx >= len(items) {
		return "", fmt.Errorf("index %d out of %d entries", idx, len(items))
	}
	s := strings.TrimSpace(convert.String(items[idx]))
	if s == "" {
		return "", errors.New("empty entry")
	}
	return s, nil
}

func (b *Broker) ready() error {
	if b.account == "" {
		return errors.New("creon: trade session not initialized, run Verify first")
	}
	return nil
}

// cooldown reads the remaining request-limit time the terminal reports.
func (b *Broker) cooldown() time.Duration {
	v, err := b.cybos.Get("LimitRequestRemainTime")
	if err != nil {
		logger.Warnf("creon: read LimitRequestRemainTime: %v", err)
		return defaultCooldown
	}
	ms, ok := convert.Int64(v)
	if !ok || ms < 0 {
		return defaultCooldown
	}
	return time.Duration(ms) * time.Millisecond
}

func (b *Broker) req(name string, obj Object) request {
	return request{name: name, obj: obj}
}

// send sets inputs in index order and blocks for the response.
func (b *Broker) send(r request, inputs ...input) error {
	for _, in := range inputs {
		if err := r.set(in.idx, in.value); err != nil {
			return err
		}
	}
	return r.block(b.cooldown)
}

// sendPaged sends r and hands every page of the response to read, blocking
// again while the terminal reports more rows. read may return errStopPaging
// once it has what it needs.
func (b *Broker) sendPaged(r request, read func(page int) error, inputs ...input) error {
	if err := b.send(r, inputs...); err != nil {
		return err
	}
	for page := 0; ; page++ {
		if err := read(page); err != nil {
			if errors.Is(err, errStopPaging) {
				return nil
			}
			return err
		}
		more, err := r.more()
		if err != nil || !more {
			return err
		}
		if page+1 >= maxPages {
			return fmt.Errorf("%s: more than %d pages", r.name, maxPages)
		}
		if err := r.block(b.cooldown); err != nil {
			return err
		}
	}
}

type input struct {
	idx   int
	value any
}

// Close releases every handle and then the dispatcher, which the broker
// owns from New onwards.
func (b *Broker) Close() error {
	b.release()
	if b.disp == nil {
		return nil
	}
	err := b.disp.Close()
	b.disp = nil
	return err
}

func (b *Broker) release() {
	for _, obj := range []*Object{&b.cybos, &b.tdUtil, &b.stockMst, &b.balance, &b.cash, &b.order, &b.cancel, &b.openOrders, &b.fills} {
		if *obj != nil {
			(*obj).Release()
			*obj = nil
		}
	}
}
