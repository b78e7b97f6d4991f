package com

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Slot indices of the IUnknown methods every table starts with.
const (
	SlotQueryInterface = 0
	SlotAddRef         = 1
	SlotRelease        = 2

	// BaseSlots is the number of inherited IUnknown slots.
	BaseSlots = 3
)

// Table is an immutable vtable shared by every shadow of one contract.
type Table struct {
	name  string
	iids  []GUID
	names []string
	slots []uintptr
	// dead has one entry per slot, each raising a ContractViolation. Released
	// shadows are pointed at it.
	dead []uintptr
}

// Name returns the contract name the table was built for.
func (t *Table) Name() string { return t.name }

// IID returns the primary interface identifier.
func (t *Table) IID() GUID { return t.iids[0] }

// Len returns the total slot count, IUnknown slots included.
func (t *Table) Len() int { return len(t.slots) }

// Addr returns the address native code stores in an object's first word.
func (t *Table) Addr() uintptr { return uintptrOf(&t.slots[0]) }

// DeadAddr returns the table a shadow of this contract points to after its
// last Release.
func (t *Table) DeadAddr() uintptr { return uintptrOf(&t.dead[0]) }

// Slot returns the function pointer at index i.
func (t *Table) Slot(i int) uintptr { return t.slots[i] }

// SlotName returns the method name registered at index i.
func (t *Table) SlotName(i int) string { return t.names[i] }

// Implements reports whether QueryInterface for iid succeeds on shadows of
// this table.
func (t *Table) Implements(iid GUID) bool {
	if iid == IID_IUnknown {
		return true
	}
	for _, id := range t.iids {
		if id == iid {
			return true
		}
	}
	return false
}

// TableBuilder collects thunks in slot order. Build fails fast when the number
// of registered methods differs from the declared count.
type TableBuilder struct {
	name     string
	iids     []GUID
	declared int
	names    []string
	thunks   []Thunk
	shared   []bool
}

// NewTableBuilder starts a table for an interface with the given number of
// methods, not counting the IUnknown slots.
func NewTableBuilder(name string, iid GUID, methods int) *TableBuilder {
	return &TableBuilder{
		name:     name,
		iids:     []GUID{iid},
		declared: methods,
	}
}

// Inherits adds base interface IIDs that QueryInterface also answers, for
// example IMFAttributes on an IMFMediaType table.
func (b *TableBuilder) Inherits(iids ...GUID) *TableBuilder {
	b.iids = append(b.iids, iids...)
	return b
}

// Add appends the thunk for the next method.
func (b *TableBuilder) Add(name string, t Thunk) *TableBuilder {
	b.names = append(b.names, name)
	b.thunks = append(b.thunks, t)
	b.shared = append(b.shared, false)
	return b
}

// AddNotImplemented appends one slot per name that answers E_NOTIMPL.
func (b *TableBuilder) AddNotImplemented(names ...string) *TableBuilder {
	for _, name := range names {
		b.names = append(b.names, name)
		b.thunks = append(b.thunks, notImplementedThunk)
		b.shared = append(b.shared, true)
	}
	return b
}

// Build validates the registrations and mints the table. It panics with a
// *ContractViolation when the layout is wrong.
func (b *TableBuilder) Build() *Table {
	if err := b.validate(); err != nil {
		panic(&ContractViolation{Err: fmt.Errorf("table %s: %w", b.name, err)})
	}

	base := baseThunks()
	t := &Table{
		name:  b.name,
		iids:  b.iids,
		names: append([]string{"QueryInterface", "AddRef", "Release"}, b.names...),
		slots: allocSlots(BaseSlots + len(b.thunks)),
		dead:  allocSlots(BaseSlots + len(b.thunks)),
	}
	copy(t.slots, base[:])
	for i := range t.dead {
		t.dead[i] = deadSlot()
	}
	for i, th := range b.thunks {
		if b.shared[i] {
			t.slots[BaseSlots+i] = notImplementedSlot()
			continue
		}
		t.slots[BaseSlots+i] = mintThunk(th)
	}
	return t
}

func (b *TableBuilder) validate() error {
	var err error
	if b.declared < 0 {
		err = multierr.Append(err, fmt.Errorf("negative method count %d", b.declared))
	}
	if len(b.thunks) != b.declared {
		err = multierr.Append(err, fmt.Errorf("registered %d methods, declared %d", len(b.thunks), b.declared))
	}
	if b.iids[0].IsZero() {
		err = multierr.Append(err, errors.New("primary IID is GUID_NULL"))
	}
	for i, th := range b.thunks {
		if th == nil {
			err = multierr.Append(err, fmt.Errorf("slot %d (%s) has no thunk", BaseSlots+i, b.names[i]))
		}
	}
	return err
}

// notImplementedSlot is minted once and shared by every E_NOTIMPL slot.
var notImplementedSlot = sync.OnceValue(func() uintptr {
	return mintThunk(notImplementedThunk)
})

func notImplementedThunk(this, _, _, _, _ uintptr) uintptr {
	return E_NOTIMPL.Ret()
}

var deadSlot = sync.OnceValue(func() uintptr {
	return mintThunk(deadThunk)
})

func deadThunk(this, _, _, _, _ uintptr) uintptr {
	panic(violationf("call on %#x after its last Release", this))
}
