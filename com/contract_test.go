package com

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accumulator is a small contract used to exercise tables and shadows.
type accumulator interface {
	Add(n int32) error
	Total() (int64, error)
	Fill(dst []uint32) error
}

var (
	iidAccumulator = MustParseGUID("6d1c3e1a-3f4b-4b8e-9d47-2f6c1a0b5e11")
	iidOther       = MustParseGUID("0b7f8d2e-91c4-4a55-8e0f-3c2d1b6a9e77")
)

const (
	slotAdd   = BaseSlots + 0
	slotTotal = BaseSlots + 1
	slotFill  = BaseSlots + 2
)

var accumulatorContract *Contract[accumulator]

func init() {
	accumulatorContract = NewContract[accumulator]("IAccumulator", iidAccumulator, 3, func(b *TableBuilder) {
		b.Add("Add", func(this, n, _, _, _ uintptr) uintptr {
			return accumulatorContract.Dispatch(this, "Add", func(a accumulator) error {
				return a.Add(int32(uint32(n)))
			})
		})
		b.Add("Total", func(this, out, _, _, _ uintptr) uintptr {
			return accumulatorContract.Dispatch(this, "Total", func(a accumulator) error {
				if err := RequirePointers(out); err != nil {
					return err
				}
				v, err := a.Total()
				if err != nil {
					return err
				}
				return Store(out, v)
			})
		})
		b.Add("Fill", func(this, capacity, dst, _, _ uintptr) uintptr {
			return accumulatorContract.Dispatch(this, "Fill", func(a accumulator) error {
				return a.Fill(View[uint32](dst, uint32(capacity)))
			})
		})
	})
}

type sum struct {
	mu     sync.Mutex
	total  int64
	fill   int
	err    error
	closed bool
}

func (s *sum) Add(n int32) error {
	if s.err != nil {
		return s.err
	}
	if n < 0 {
		panic("negative")
	}
	s.mu.Lock()
	s.total += int64(n)
	s.mu.Unlock()
	return nil
}

func (s *sum) Total() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, nil
}

// Fill writes s.fill items regardless of len(dst).
func (s *sum) Fill(dst []uint32) error {
	for i := 0; i < s.fill; i++ {
		dst[i] = uint32(i + 1)
	}
	return nil
}

func (s *sum) Close() error {
	s.closed = true
	return nil
}

func TestTableBuilder_CountMismatch(t *testing.T) {
	b := NewTableBuilder("IBroken", iidOther, 2)
	b.AddNotImplemented("Only")

	requireViolation(t, "registered 1 methods, declared 2", func() { b.Build() })
}

func TestTableBuilder_CollectsAllProblems(t *testing.T) {
	b := NewTableBuilder("INull", GUID{}, 1)
	b.Add("Nil", nil)
	b.AddNotImplemented("Extra")

	defer func() {
		v, ok := recover().(*ContractViolation)
		require.True(t, ok)
		msg := v.Error()
		assert.Contains(t, msg, "registered 2 methods, declared 1")
		assert.Contains(t, msg, "GUID_NULL")
		assert.Contains(t, msg, "slot 3 (Nil) has no thunk")
	}()
	b.Build()
}

func TestTable_Layout(t *testing.T) {
	table := accumulatorContract.Table()
	assert.Same(t, table, accumulatorContract.Table(), "table must be built once")
	assert.Equal(t, BaseSlots+3, table.Len())
	assert.Equal(t, iidAccumulator, table.IID())

	names := []string{"QueryInterface", "AddRef", "Release", "Add", "Total", "Fill"}
	seen := map[uintptr]bool{}
	for i, name := range names {
		assert.Equal(t, name, table.SlotName(i))
		fn := table.Slot(i)
		require.NotZero(t, fn)
		assert.True(t, IsThunk(fn))
		assert.False(t, seen[fn], "slot %d reuses a pointer", i)
		seen[fn] = true
	}

	other := NewTableBuilder("IOther", iidOther, 1).AddNotImplemented("Noop").Build()
	for i := 0; i < BaseSlots; i++ {
		assert.Equal(t, table.Slot(i), other.Slot(i), "IUnknown slots are shared")
	}
	assert.True(t, other.Implements(IID_IUnknown))
	assert.True(t, other.Implements(iidOther))
	assert.False(t, other.Implements(iidAccumulator))
}

func TestShadow_WrapUnwrapIdentity(t *testing.T) {
	impl := &sum{}
	h := accumulatorContract.Wrap(impl)
	require.NotZero(t, h)
	defer Release(h)

	got := accumulatorContract.Unwrap(h)
	assert.Same(t, impl, got.(*sum))
	assert.Equal(t, accumulatorContract.Table().Addr(), vtableOf(h))
	assert.True(t, IsShadow(h))
}

func TestShadow_UnwrapForeignHandlePanics(t *testing.T) {
	other := NewContract[interface{ Noop() }]("IOtherShadow", iidOther, 0, func(*TableBuilder) {})
	h := other.Wrap(noop{})
	defer Release(h)

	requireViolation(t, "is not a live IAccumulator shadow", func() {
		accumulatorContract.Unwrap(h)
	})
	_, ok := accumulatorContract.Lookup(h)
	assert.False(t, ok)
	_, ok = accumulatorContract.Lookup(0)
	assert.False(t, ok)
}

func requireViolation(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		p := recover()
		require.NotNil(t, p, "expected a contract violation")
		v, ok := p.(*ContractViolation)
		require.True(t, ok, "panic value %T: %v", p, p)
		assert.Contains(t, v.Error(), contains)
	}()
	fn()
}

type noop struct{}

func (noop) Noop() {}

func TestShadow_RefCounting(t *testing.T) {
	impl := &sum{}
	h := accumulatorContract.Wrap(impl)

	const n = 5
	for i := 0; i < n; i++ {
		c, err := AddRef(h)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+2), c)
	}
	for i := 0; i < n; i++ {
		c, err := Release(h)
		require.NoError(t, err)
		assert.Equal(t, uint32(n-i), c)
		assert.True(t, IsShadow(h), "alive until the last release")
	}
	assert.False(t, impl.closed)

	c, err := Release(h)
	require.NoError(t, err)
	assert.Zero(t, c)
	assert.False(t, IsShadow(h))
	assert.True(t, impl.closed, "destroying the shadow closes the implementation")

	_, err = Release(h)
	assert.ErrorIs(t, err, ErrNotShadow, "over-release is detected")
	_, err = AddRef(h)
	assert.ErrorIs(t, err, ErrNotShadow)
}

func TestShadow_ConcurrentRefCounting(t *testing.T) {
	h := accumulatorContract.Wrap(&sum{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := AddRef(h)
				assert.NoError(t, err)
				_, err = Release(h)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	c, err := Release(h)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestObject_CallsThroughTable(t *testing.T) {
	impl := &sum{}
	obj := Attach(accumulatorContract.Wrap(impl))
	defer obj.Release()

	require.Equal(t, S_OK, obj.Call(slotAdd, 40))
	require.Equal(t, S_OK, obj.Call(slotAdd, 2))

	var pins runtime.Pinner
	defer pins.Unpin()
	total := new(int64)
	require.Equal(t, S_OK, obj.Call(slotTotal, Addr(&pins, total)))
	assert.Equal(t, int64(42), *total)

	assert.Equal(t, E_POINTER, obj.Call(slotTotal, 0))
}

func TestObject_ErrorsBecomeResults(t *testing.T) {
	sentinel := ResultFromCode(0xC00D36B5)
	impl := &sum{}
	obj := Attach(accumulatorContract.Wrap(impl))
	defer obj.Release()

	impl.err = sentinel
	assert.Equal(t, sentinel, obj.Call(slotAdd, 1))
	f := LastFailure()
	require.NotNil(t, f)
	assert.Equal(t, "Add", f.Method)
	assert.Equal(t, sentinel, f.Result)

	impl.err = errors.New("disk on fire")
	assert.Equal(t, E_FAIL, obj.Call(slotAdd, 1))

	impl.err = nil
	ClearLastFailure()
	// The thunk truncates to 32 bits: 0xFFFFFFFF is -1 and panics inside Add.
	assert.Equal(t, E_UNEXPECTED, obj.Call(slotAdd, 0xFFFFFFFF))
	f = LastFailure()
	require.NotNil(t, f)
	assert.Equal(t, "negative", f.Panic)
}

func TestObject_GrowableArrayNeverOverruns(t *testing.T) {
	impl := &sum{fill: 2}
	obj := Attach(accumulatorContract.Wrap(impl))
	defer obj.Release()

	var pins runtime.Pinner
	defer pins.Unpin()
	buf := []uint32{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

	require.Equal(t, S_OK, obj.Call(slotFill, 3, SliceAddr(&pins, buf)))
	assert.Equal(t, []uint32{1, 2, 0xAA, 0xAA, 0xAA, 0xAA}, buf)

	impl.fill = 5
	assert.Equal(t, E_UNEXPECTED, obj.Call(slotFill, 3, SliceAddr(&pins, buf)))
	assert.Equal(t, []uint32{1, 2, 3, 0xAA, 0xAA, 0xAA}, buf, "writes stop at capacity")
}

func TestObject_QueryInterface(t *testing.T) {
	obj := Attach(accumulatorContract.Wrap(&sum{}))
	defer obj.Release()

	p, r := obj.QueryInterface(iidAccumulator)
	require.Equal(t, S_OK, r)
	assert.Equal(t, obj.NativePointer(), p)
	assert.Equal(t, uint32(1), ReleasePointer(p))

	p, r = obj.QueryInterface(IID_IUnknown)
	require.Equal(t, S_OK, r)
	ReleasePointer(p)

	p, r = obj.QueryInterface(iidOther)
	assert.Equal(t, E_NOINTERFACE, r)
	assert.Zero(t, p)
}

func TestObject_ReleaseIsIdempotent(t *testing.T) {
	obj := Attach(accumulatorContract.Wrap(&sum{}))
	h := obj.NativePointer()
	assert.Equal(t, uint32(2), obj.AddRef())
	assert.Equal(t, uint32(1), obj.Release())
	assert.True(t, obj.IsNull())
	assert.Zero(t, obj.Release())
	assert.Equal(t, E_POINTER, obj.Call(slotAdd, 1))
	assert.Zero(t, ReleasePointer(h))
}

func TestReleaseThunk_OverReleaseIsFatal(t *testing.T) {
	h := accumulatorContract.Wrap(&sum{})
	assert.Zero(t, ReleasePointer(h))
	requireViolation(t, "not a live shadow", func() { releaseThunk(uintptr(h), 0, 0, 0, 0) })
}

func TestShadow_ReleasedBlockPointsAtDeadTable(t *testing.T) {
	table := accumulatorContract.Table()
	h := accumulatorContract.Wrap(&sum{})
	assert.Equal(t, table.Addr(), vtableOf(h))
	assert.Zero(t, ReleasePointer(h))

	assert.Equal(t, table.DeadAddr(), vtableOf(h), "the block outlives the shadow")
	for _, slot := range []int{SlotQueryInterface, SlotAddRef, SlotRelease, slotAdd, slotFill} {
		requireViolation(t, "after its last Release", func() {
			invoke(slotAddr(h, slot), uintptr(h))
		})
	}

	next := accumulatorContract.Wrap(&sum{})
	defer Release(next)
	assert.NotEqual(t, h, next, "a released block is not reused right away")
	assert.Equal(t, table.Addr(), vtableOf(next))
}

func TestShadow_BlocksRecycleAfterQuarantine(t *testing.T) {
	first := accumulatorContract.Wrap(&sum{})
	require.Zero(t, ReleasePointer(first))

	seen := false
	for i := 0; i <= deadQuarantine+1 && !seen; i++ {
		h := accumulatorContract.Wrap(&sum{})
		seen = h == first
		require.Zero(t, ReleasePointer(h))
	}
	assert.True(t, seen, "the oldest dead block is reused once the quarantine is full")
}

func TestToCallbackPtr(t *testing.T) {
	assert.Zero(t, ToCallbackPtr(nil))
	var typedNil *sum
	assert.Zero(t, ToCallbackPtr(typedNil))

	impl := &sum{}
	h := ToCallbackPtr(impl)
	require.True(t, IsShadow(h))
	assert.Same(t, impl, accumulatorContract.Unwrap(h).(*sum))

	obj := Attach(h)
	p := ToCallbackPtr(&obj)
	assert.Equal(t, h, p, "native objects pass through")
	c, err := Release(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c, "pass-through added a reference")
	obj.Release()

	requireViolation(t, "registered contract", func() { ToCallbackPtr(42) })
}
