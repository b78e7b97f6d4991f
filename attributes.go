package mf

import (
	"runtime"

	"github.com/thesyncim/mf/com"
)

// MF_E_ATTRIBUTENOTFOUND is returned when an attribute key is not present.
const MF_E_ATTRIBUTENOTFOUND com.Result = -0x3FF2C91A // 0xC00D36E6

func init() {
	com.RegisterResultName(MF_E_ATTRIBUTENOTFOUND, "MF_E_ATTRIBUTENOTFOUND")
}

// IMFAttributes slots. Objects derived from IMFAttributes (media types,
// samples, events) start their own methods at attributesEnd.
const (
	slotAttrGetItem = iota + 3
	slotAttrGetItemType
	slotAttrCompareItem
	slotAttrCompare
	slotAttrGetUINT32
	slotAttrGetUINT64
	slotAttrGetDouble
	slotAttrGetGUID
	slotAttrGetStringLength
	slotAttrGetString
	slotAttrGetAllocatedString
	slotAttrGetBlobSize
	slotAttrGetBlob
	slotAttrGetAllocatedBlob
	slotAttrGetUnknown
	slotAttrSetItem
	slotAttrDeleteItem
	slotAttrDeleteAllItems
	slotAttrSetUINT32
	slotAttrSetUINT64
	slotAttrSetDouble
	slotAttrSetGUID
	slotAttrSetString
	slotAttrSetBlob
	slotAttrSetUnknown
	slotAttrLockStore
	slotAttrUnlockStore
	slotAttrGetCount
	slotAttrGetItemByIndex
	slotAttrCopyAllItems

	attributesEnd
	attributesMethods = attributesEnd - 3
)

// attributeStore is the part of IMFAttributes the Go-backed objects serve.
type attributeStore interface {
	GetUINT32(key com.GUID) (uint32, error)
	GetUINT64(key com.GUID) (uint64, error)
	GetGUID(key com.GUID) (com.GUID, error)
	SetUINT32(key com.GUID, value uint32) error
	SetUINT64(key com.GUID, value uint64) error
	SetGUID(key com.GUID, value com.GUID) error
	DeleteItem(key com.GUID) error
	DeleteAllItems() error
	GetCount() (uint32, error)
}

// MediaAttributes is a reference to an IMFAttributes store.
type MediaAttributes struct {
	com.Object
}

// AttachMediaAttributes takes ownership of one reference to ptr. It returns
// nil for a null pointer.
func AttachMediaAttributes(ptr com.Handle) *MediaAttributes {
	if ptr == 0 {
		return nil
	}
	return &MediaAttributes{Object: com.Attach(ptr)}
}

func (a *MediaAttributes) GetUINT32(key com.GUID) (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	k, v := key, new(uint32)
	if err := a.Call(slotAttrGetUINT32, com.Addr(&pins, &k), com.Addr(&pins, v)).Check("IMFAttributes::GetUINT32"); err != nil {
		return 0, err
	}
	return *v, nil
}

func (a *MediaAttributes) GetUINT64(key com.GUID) (uint64, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	k, v := key, new(uint64)
	if err := a.Call(slotAttrGetUINT64, com.Addr(&pins, &k), com.Addr(&pins, v)).Check("IMFAttributes::GetUINT64"); err != nil {
		return 0, err
	}
	return *v, nil
}

func (a *MediaAttributes) GetGUID(key com.GUID) (com.GUID, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	k, v := key, new(com.GUID)
	if err := a.Call(slotAttrGetGUID, com.Addr(&pins, &k), com.Addr(&pins, v)).Check("IMFAttributes::GetGUID"); err != nil {
		return com.GUID{}, err
	}
	return *v, nil
}

func (a *MediaAttributes) SetUINT32(key com.GUID, value uint32) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	k := key
	return a.Call(slotAttrSetUINT32, com.Addr(&pins, &k), uintptr(value)).Check("IMFAttributes::SetUINT32")
}

func (a *MediaAttributes) SetUINT64(key com.GUID, value uint64) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	k := key
	return a.Call(slotAttrSetUINT64, com.Addr(&pins, &k), uintptr(value)).Check("IMFAttributes::SetUINT64")
}

func (a *MediaAttributes) SetGUID(key com.GUID, value com.GUID) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	k, v := key, value
	return a.Call(slotAttrSetGUID, com.Addr(&pins, &k), com.Addr(&pins, &v)).Check("IMFAttributes::SetGUID")
}

func (a *MediaAttributes) DeleteItem(key com.GUID) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	k := key
	return a.Call(slotAttrDeleteItem, com.Addr(&pins, &k)).Check("IMFAttributes::DeleteItem")
}

func (a *MediaAttributes) DeleteAllItems() error {
	return a.Call(slotAttrDeleteAllItems).Check("IMFAttributes::DeleteAllItems")
}

func (a *MediaAttributes) GetCount() (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := a.Call(slotAttrGetCount, com.Addr(&pins, v)).Check("IMFAttributes::GetCount"); err != nil {
		return 0, err
	}
	return *v, nil
}

// addAttributeSlots registers the 30 IMFAttributes methods for a Go-backed
// store. Methods outside attributeStore answer E_NOTIMPL.
func addAttributeSlots[T attributeStore](b *com.TableBuilder, contract func() *com.Contract[T]) {
	getter := func(name string, get func(s T, key com.GUID, out uintptr) error) com.Thunk {
		return func(this, key, out, _, _ uintptr) uintptr {
			return contract().Dispatch(this, name, func(s T) error {
				k, err := com.Load[com.GUID](key)
				if err != nil {
					return err
				}
				if err := com.RequirePointers(out); err != nil {
					return err
				}
				return get(s, k, out)
			})
		}
	}

	b.AddNotImplemented("GetItem", "GetItemType", "CompareItem", "Compare")
	b.Add("GetUINT32", getter("GetUINT32", func(s T, k com.GUID, out uintptr) error {
		v, err := s.GetUINT32(k)
		if err != nil {
			return err
		}
		return com.Store(out, v)
	}))
	b.Add("GetUINT64", getter("GetUINT64", func(s T, k com.GUID, out uintptr) error {
		v, err := s.GetUINT64(k)
		if err != nil {
			return err
		}
		return com.Store(out, v)
	}))
	b.AddNotImplemented("GetDouble")
	b.Add("GetGUID", getter("GetGUID", func(s T, k com.GUID, out uintptr) error {
		v, err := s.GetGUID(k)
		if err != nil {
			return err
		}
		return com.Store(out, v)
	}))
	b.AddNotImplemented("GetStringLength", "GetString", "GetAllocatedString",
		"GetBlobSize", "GetBlob", "GetAllocatedBlob", "GetUnknown", "SetItem")
	b.Add("DeleteItem", func(this, key, _, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "DeleteItem", func(s T) error {
			k, err := com.Load[com.GUID](key)
			if err != nil {
				return err
			}
			return s.DeleteItem(k)
		})
	})
	b.Add("DeleteAllItems", func(this, _, _, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "DeleteAllItems", func(s T) error {
			return s.DeleteAllItems()
		})
	})
	b.Add("SetUINT32", func(this, key, value, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "SetUINT32", func(s T) error {
			k, err := com.Load[com.GUID](key)
			if err != nil {
				return err
			}
			return s.SetUINT32(k, uint32(value))
		})
	})
	b.Add("SetUINT64", func(this, key, value, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "SetUINT64", func(s T) error {
			k, err := com.Load[com.GUID](key)
			if err != nil {
				return err
			}
			return s.SetUINT64(k, uint64(value))
		})
	})
	b.AddNotImplemented("SetDouble")
	b.Add("SetGUID", func(this, key, value, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "SetGUID", func(s T) error {
			k, err := com.Load[com.GUID](key)
			if err != nil {
				return err
			}
			v, err := com.Load[com.GUID](value)
			if err != nil {
				return err
			}
			return s.SetGUID(k, v)
		})
	})
	b.AddNotImplemented("SetString", "SetBlob", "SetUnknown", "LockStore", "UnlockStore")
	b.Add("GetCount", func(this, out, _, _, _ uintptr) uintptr {
		return contract().Dispatch(this, "GetCount", func(s T) error {
			if err := com.RequirePointers(out); err != nil {
				return err
			}
			n, err := s.GetCount()
			if err != nil {
				return err
			}
			return com.Store(out, n)
		})
	})
	b.AddNotImplemented("GetItemByIndex", "CopyAllItems")
}
