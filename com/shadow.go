package com

import (
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type shadow struct {
	table *Table
	impl  any
	refs  atomic.Int32
}

// shadows holds every live shadow keyed by its handle. It keeps the
// implementation reachable while native code holds references.
var shadows sync.Map // Handle -> *shadow

// newShadow allocates an object block whose first word is the table address,
// as the COM ABI requires.
func newShadow(t *Table, impl any) Handle {
	s := &shadow{
		table: t,
		impl:  impl,
	}
	s.refs.Store(1)
	h := allocBlock(t.Addr())
	shadows.Store(h, s)
	return h
}

func lookupShadow(h Handle) (*shadow, bool) {
	if h == 0 {
		return nil, false
	}
	v, ok := shadows.Load(h)
	if !ok {
		return nil, false
	}
	return v.(*shadow), true
}

// IsShadow reports whether h is a live shadow created by this process.
func IsShadow(h Handle) bool {
	_, ok := lookupShadow(h)
	return ok
}

// LiveShadows returns the number of shadows that have not been destroyed.
func LiveShadows() int {
	n := 0
	shadows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// AddRef increments the reference count of the shadow h.
func AddRef(h Handle) (uint32, error) {
	s, ok := lookupShadow(h)
	if !ok {
		return 0, ErrNotShadow
	}
	for {
		n := s.refs.Load()
		if n <= 0 {
			return 0, ErrNotShadow
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return uint32(n + 1), nil
		}
	}
}

// Release decrements the reference count of the shadow h and destroys it when
// the count reaches zero. Releasing a shadow that was already destroyed, or a
// handle that was never a shadow, returns ErrNotShadow.
func Release(h Handle) (uint32, error) {
	s, ok := lookupShadow(h)
	if !ok {
		return 0, ErrNotShadow
	}
	for {
		n := s.refs.Load()
		if n <= 0 {
			return 0, ErrNotShadow
		}
		if !s.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			s.destroy(h)
		}
		return uint32(n - 1), nil
	}
}

func (s *shadow) destroy(h Handle) {
	shadows.CompareAndDelete(h, s)
	retireBlock(h, s.table.DeadAddr())
	if c, ok := s.impl.(io.Closer); ok {
		if err := c.Close(); err != nil {
			Logger().Warn("com: closing shadowed implementation failed",
				zap.String("contract", s.table.name),
				zap.Error(err))
		}
	}
	s.impl = nil
}

var baseThunks = sync.OnceValue(func() [BaseSlots]uintptr {
	return [BaseSlots]uintptr{
		SlotQueryInterface: mintThunk(queryInterfaceThunk),
		SlotAddRef:         mintThunk(addRefThunk),
		SlotRelease:        mintThunk(releaseThunk),
	}
})

func queryInterfaceThunk(this, riid, ppv, _, _ uintptr) uintptr {
	s, ok := lookupShadow(Handle(this))
	if !ok {
		panic(violationf("QueryInterface on %#x, which is not a live shadow", this))
	}
	out := Ref[uintptr](ppv)
	if out == nil {
		return E_POINTER.Ret()
	}
	*out = 0
	iid := Ref[GUID](riid)
	if iid == nil {
		return E_POINTER.Ret()
	}
	if !s.table.Implements(*iid) {
		return E_NOINTERFACE.Ret()
	}
	if _, err := AddRef(Handle(this)); err != nil {
		panic(&ContractViolation{Err: err})
	}
	*out = this
	return S_OK.Ret()
}

func addRefThunk(this, _, _, _, _ uintptr) uintptr {
	n, err := AddRef(Handle(this))
	if err != nil {
		panic(&ContractViolation{Err: err})
	}
	return uintptr(n)
}

func releaseThunk(this, _, _, _, _ uintptr) uintptr {
	n, err := Release(Handle(this))
	if err != nil {
		panic(&ContractViolation{Err: err})
	}
	return uintptr(n)
}

// Contract binds a Go interface T to the vtable layout native callers expect.
type Contract[T any] struct {
	name  string
	table func() *Table
}

// NewContract declares a contract. register adds the method thunks in ABI
// order; it runs once, the first time a table is needed. The contract is
// registered with ToCallbackPtr.
func NewContract[T any](name string, iid GUID, methods int, register func(b *TableBuilder)) *Contract[T] {
	c := &Contract[T]{name: name}
	c.table = sync.OnceValue(func() *Table {
		b := NewTableBuilder(name, iid, methods)
		register(b)
		return b.Build()
	})
	contractsMu.Lock()
	contracts = append(contracts, c)
	contractsMu.Unlock()
	return c
}

// Name returns the contract name.
func (c *Contract[T]) Name() string { return c.name }

// Table returns the shared table, building it on first use.
func (c *Contract[T]) Table() *Table { return c.table() }

// Wrap exposes impl to native code. The returned handle carries one
// reference.
func (c *Contract[T]) Wrap(impl T) Handle {
	if isNil(impl) {
		return 0
	}
	return newShadow(c.Table(), impl)
}

// Unwrap returns the implementation behind h. It panics with a
// *ContractViolation if h is not a live shadow of this contract.
func (c *Contract[T]) Unwrap(h Handle) T {
	impl, ok := c.Lookup(h)
	if !ok {
		panic(violationf("%#x is not a live %s shadow", uintptr(h), c.name))
	}
	return impl
}

// Lookup is Unwrap without the panic.
func (c *Contract[T]) Lookup(h Handle) (T, bool) {
	var zero T
	s, ok := lookupShadow(h)
	if !ok || s.table != c.Table() {
		return zero, false
	}
	impl, ok := s.impl.(T)
	if !ok {
		return zero, false
	}
	return impl, true
}

// Dispatch is the body of every contract thunk: it recovers the
// implementation, runs fn and converts the outcome to an HRESULT. Errors and
// panics from fn never cross the boundary; contract violations do.
func (c *Contract[T]) Dispatch(this uintptr, method string, fn func(impl T) error) (ret uintptr) {
	impl := c.Unwrap(Handle(this))
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if v, ok := p.(*ContractViolation); ok {
			panic(v)
		}
		recordFailure(&Failure{Contract: c.name, Method: method, Result: E_UNEXPECTED, Panic: p})
		ret = E_UNEXPECTED.Ret()
	}()

	err := fn(impl)
	r := ResultFromError(err)
	if r.Failed() {
		recordFailure(&Failure{Contract: c.name, Method: method, Result: r, Err: err})
	}
	return r.Ret()
}

func (c *Contract[T]) tryWrap(v any) (Handle, bool) {
	impl, ok := v.(T)
	if !ok {
		return 0, false
	}
	return c.Wrap(impl), true
}

type wrapper interface {
	tryWrap(v any) (Handle, bool)
}

var (
	contractsMu sync.RWMutex
	contracts   []wrapper
)

// NativeObject is implemented by Go values that already hold a COM pointer.
type NativeObject interface {
	NativePointer() Handle
}

// ToCallbackPtr converts a value returned by an implementation into a pointer
// for a native out-parameter. The receiver owns one reference:
//   - nil (including typed nil pointers) yields 0;
//   - a NativeObject has its existing pointer AddRef'd and passed through;
//   - a value implementing a registered contract is wrapped in a new shadow.
//
// Any other value is a contract violation.
func ToCallbackPtr(v any) Handle {
	if isNil(v) {
		return 0
	}
	if n, ok := v.(NativeObject); ok {
		p := n.NativePointer()
		if p != 0 {
			AddRefPointer(p)
		}
		return p
	}
	contractsMu.RLock()
	defer contractsMu.RUnlock()
	for _, c := range contracts {
		if h, ok := c.tryWrap(v); ok {
			return h
		}
	}
	panic(violationf("%T is neither a native object nor an implementation of a registered contract", v))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// PointerOf returns the pointer v holds without changing its count, or 0 for
// nil (including typed nil pointers).
func PointerOf(v NativeObject) Handle {
	if isNil(v) {
		return 0
	}
	return v.NativePointer()
}
