package creon

import (
	"fmt"
	"sync"
)

// fakeObject records inputs and answers header/data reads from tables the
// test fills in, optionally computed by onBlock from the inputs. Each entry
// in pages loads one response page on successive block requests.
type fakeObject struct {
	progID   string
	props    map[string]any
	inputs   map[int]any
	headers  map[int]any
	data     map[[2]int]any
	codes    []int
	onBlock  func(o *fakeObject)
	pages    []func(o *fakeObject)
	calls    []string
	released bool
}

func (o *fakeObject) Call(method string, args ...any) (any, error) {
	o.calls = append(o.calls, method)
	switch method {
	case "SetInputValue":
		o.inputs[args[0].(int)] = args[1]
		return nil, nil
	case "BlockRequest":
		code := 0
		if len(o.codes) > 0 {
			code, o.codes = o.codes[0], o.codes[1:]
		}
		if code == 0 && len(o.pages) > 0 {
			o.pages[0](o)
			o.pages = o.pages[1:]
		}
		if code == 0 && o.onBlock != nil {
			o.onBlock(o)
		}
		return int32(code), nil
	case "GetDibStatus":
		return int16(0), nil
	case "GetDibMsg1":
		return "", nil
	case "GetHeaderValue":
		return o.headers[args[0].(int)], nil
	case "GetDataValue":
		return o.data[[2]int{args[0].(int), args[1].(int)}], nil
	default:
		if v, ok := o.props[method]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("%s: unknown method %s", o.progID, method)
	}
}

func (o *fakeObject) Get(property string, _ ...any) (any, error) {
	v, ok := o.props[property]
	if !ok {
		return nil, fmt.Errorf("%s: unknown property %s", o.progID, property)
	}
	return v, nil
}

func (o *fakeObject) Release() { o.released = true }

type fakeDispatcher struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
	failOn  string
	closed  int
}

func newFakeDispatcher() *fakeDispatcher {
	d := &fakeDispatcher{objects: map[string]*fakeObject{}}
	for _, id := range []string{progCybos, progTdUtil, progStockMst, progBalance, progCash, progOrder, progCancel, progOpenOrders, progFills} {
		d.objects[id] = &fakeObject{
			progID:  id,
			props:   map[string]any{},
			inputs:  map[int]any{},
			headers: map[int]any{},
			data:    map[[2]int]any{},
		}
		d.objects[id].props["Continue"] = int32(0)
	}
	d.objects[progCybos].props["IsConnect"] = int16(1)
	d.objects[progCybos].props["LimitRequestRemainTime"] = int32(350)
	d.objects[progTdUtil].props["TradeInit"] = int16(0)
	d.objects[progTdUtil].props["AccountNumber"] = []any{"333000111", "333000222"}
	d.objects[progTdUtil].props["GoodsList"] = []any{"01"}
	return d
}

func (d *fakeDispatcher) Create(progID string) (Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if progID == d.failOn {
		return nil, fmt.Errorf("class not registered")
	}
	obj, ok := d.objects[progID]
	if !ok {
		return nil, fmt.Errorf("unknown prog id %s", progID)
	}
	return obj, nil
}

func (d *fakeDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDispatcher) obj(progID string) *fakeObject { return d.objects[progID] }

func (o *fakeObject) blocks() int {
	n := 0
	for _, c := range o.calls {
		if c == "BlockRequest" {
			n++
		}
	}
	return n
}
