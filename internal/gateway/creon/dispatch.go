// Package creon binds the trader contract to the Creon Plus desktop terminal
// through its COM automation objects.
package creon

import (
	"errors"
	"fmt"
	"time"

	"supertrader/internal/pkg/convert"
	"supertrader/internal/trader"
)

// Object is one COM automation object.
type Object interface {
	Call(method string, args ...any) (any, error)
	Get(property string, args ...any) (any, error)
	Release()
}

// Dispatcher creates automation objects by ProgID. Implementations decide
// which OS thread the calls run on.
type Dispatcher interface {
	Create(progID string) (Object, error)
	Close() error
}

// ProgIDs of the terminal objects the binding uses. Field indices used with
// them are a contract with the installed terminal version.
const (
	progCybos      = "CpUtil.CpCybos"
	progTdUtil     = "CpTrade.CpTdUtil"
	progStockMst   = "DsCbo1.StockMst"
	progBalance    = "CpTrade.CpTd6033"
	progCash       = "CpTrade.CpTdNew5331A"
	progOrder      = "CpTrade.CpTd0311"
	progCancel     = "CpTrade.CpTd0314"
	progOpenOrders = "CpTrade.CpTd5339"
	progFills      = "CpTrade.CpTd5341"
)

// BlockRequest return codes.
const (
	blockOK          = 0
	blockRateLimited = 4
)

// maxPages bounds a paged read so a terminal stuck on Continue cannot spin
// forever.
const maxPages = 100

// errStopPaging ends a paged read early without error.
var errStopPaging = errors.New("stop paging")

// request wraps the "set inputs, block, read header/data" protocol shared by
// every terminal request object.
type request struct {
	name string
	obj  Object
}

func (r request) set(idx int, v any) error {
	if _, err := r.obj.Call("SetInputValue", idx, v); err != nil {
		return fmt.Errorf("%s: set input %d: %w", r.name, idx, err)
	}
	return nil
}

// block sends the request. A local request limit is returned as
// *trader.RateLimitedError using the cooldown the terminal reports.
func (r request) block(cooldown func() time.Duration) error {
	v, err := r.obj.Call("BlockRequest")
	if err != nil {
		return fmt.Errorf("%s: block request: %w", r.name, err)
	}
	code, ok := convert.Int64(v)
	if v != nil && !ok {
		return trader.Malformed(r.name, "BlockRequest", fmt.Errorf("unexpected %T", v))
	}
	switch code {
	case blockOK:
	case blockRateLimited:
		return &trader.RateLimitedError{Cooldown: cooldown(), Reason: r.name}
	default:
		return fmt.Errorf("%s: block request returned %d", r.name, code)
	}
	status, err := r.obj.Call("GetDibStatus")
	if err != nil {
		return fmt.Errorf("%s: dib status: %w", r.name, err)
	}
	if s, _ := convert.Int64(status); s != 0 {
		msg, _ := r.obj.Call("GetDibMsg1")
		return fmt.Errorf("%s: terminal status %d: %s", r.name, s, convert.String(msg))
	}
	return nil
}

// more reports whether the terminal holds another page of rows for the last
// request. Blocking again fetches it.
func (r request) more() (bool, error) {
	v, err := r.obj.Get("Continue")
	if err != nil {
		return false, fmt.Errorf("%s: continue: %w", r.name, err)
	}
	n, _ := convert.Int64(v)
	return n == 1, nil
}

func (r request) header(idx int) (any, error) {
	v, err := r.obj.Call("GetHeaderValue", idx)
	if err != nil {
		return nil, fmt.Errorf("%s: header %d: %w", r.name, idx, err)
	}
	return v, nil
}

func (r request) headerFloat(idx int) (float64, error) {
	v, err := r.header(idx)
	if err != nil {
		return 0, err
	}
	f, ok := convert.Float64(v)
	if !ok {
		return 0, trader.Malformed(r.name, fmt.Sprintf("header %d", idx), nil)
	}
	return f, nil
}

func (r request) headerInt(idx int) (int, error) {
	f, err := r.headerFloat(idx)
	return int(f), err
}

func (r request) data(field, row int) (any, error) {
	v, err := r.obj.Call("GetDataValue", field, row)
	if err != nil {
		return nil, fmt.Errorf("%s: data %d/%d: %w", r.name, field, row, err)
	}
	return v, nil
}

func (r request) dataFloat(field, row int) (float64, error) {
	v, err := r.data(field, row)
	if err != nil {
		return 0, err
	}
	f, ok := convert.Float64(v)
	if !ok {
		return 0, trader.Malformed(r.name, fmt.Sprintf("data %d row %d", field, row), nil)
	}
	return f, nil
}

func (r request) dataString(field, row int) (string, error) {
	v, err := r.data(field, row)
	if err != nil {
		return "", err
	}
	s := convert.String(v)
	if s == "" {
		return "", trader.Malformed(r.name, fmt.Sprintf("data %d row %d", field, row), nil)
	}
	return s, nil
}
