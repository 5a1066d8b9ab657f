//go:build windows

package creon

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// oleDispatcher runs every COM call on one locked OS thread, since the
// terminal objects live in a single-threaded apartment.
type oleDispatcher struct {
	calls chan func()
	once  sync.Once
}

// NewOLE starts the COM thread and initializes the apartment.
func NewOLE() (Dispatcher, error) {
	d := &oleDispatcher{calls: make(chan func())}
	ready := make(chan error, 1)
	go d.loop(ready)
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("creon: CoInitialize: %w", err)
	}
	return d, nil
}

func (d *oleDispatcher) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := ole.CoInitialize(0); err != nil {
		ready <- err
		return
	}
	defer ole.CoUninitialize()
	ready <- nil
	for fn := range d.calls {
		fn()
	}
}

func (d *oleDispatcher) do(fn func()) {
	done := make(chan struct{})
	d.calls <- func() {
		defer close(done)
		fn()
	}
	<-done
}

func (d *oleDispatcher) Create(progID string) (Object, error) {
	var (
		obj *oleObject
		err error
	)
	d.do(func() {
		unknown, cerr := oleutil.CreateObject(progID)
		if cerr != nil {
			err = cerr
			return
		}
		defer unknown.Release()
		disp, qerr := unknown.QueryInterface(ole.IID_IDispatch)
		if qerr != nil {
			err = qerr
			return
		}
		obj = &oleObject{d: d, disp: disp}
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *oleDispatcher) Close() error {
	d.once.Do(func() { close(d.calls) })
	return nil
}

type oleObject struct {
	d    *oleDispatcher
	disp *ole.IDispatch
}

func (o *oleObject) Call(method string, args ...any) (any, error) {
	return o.invoke(func() (*ole.VARIANT, error) {
		return oleutil.CallMethod(o.disp, method, args...)
	})
}

func (o *oleObject) Get(property string, args ...any) (any, error) {
	return o.invoke(func() (*ole.VARIANT, error) {
		return oleutil.GetProperty(o.disp, property, args...)
	})
}

func (o *oleObject) invoke(fn func() (*ole.VARIANT, error)) (any, error) {
	if o.disp == nil {
		return nil, errors.New("creon: object released")
	}
	var (
		out any
		err error
	)
	o.d.do(func() {
		v, cerr := fn()
		if cerr != nil {
			err = cerr
			return
		}
		defer v.Clear()
		if v.VT&ole.VT_ARRAY != 0 {
			arr := v.ToArray()
			if arr != nil {
				out = arr.ToValueArray()
				return
			}
		}
		out = v.Value()
	})
	return out, err
}

func (o *oleObject) Release() {
	if o.disp == nil {
		return
	}
	o.d.do(func() { o.disp.Release() })
	o.disp = nil
}
