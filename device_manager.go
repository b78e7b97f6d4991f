package mf

import (
	"runtime"

	"github.com/thesyncim/mf/com"
)

// DeviceManager is the hardware device manager carried by a
// MessageSetD3DManager message.
type DeviceManager interface {
	com.NativeObject
	// IID is the interface the manager was obtained as.
	IID() com.GUID
	OpenDeviceHandle() (uintptr, error)
	CloseDeviceHandle(device uintptr) error
	Release() uint32
}

// IMFDXGIDeviceManager slots.
const (
	slotDXGICloseDeviceHandle = iota + 3
	slotDXGIGetVideoService
	slotDXGILockDevice
	slotDXGIOpenDeviceHandle
	slotDXGIResetDevice
	slotDXGITestDevice
	slotDXGIUnlockDevice
)

// IDirect3DDeviceManager9 slots.
const (
	slotD3D9ResetDevice = iota + 3
	slotD3D9OpenDeviceHandle
	slotD3D9CloseDeviceHandle
	slotD3D9TestDevice
	slotD3D9LockDevice
	slotD3D9UnlockDevice
	slotD3D9GetVideoService
)

// DXGIDeviceManager is a reference to an IMFDXGIDeviceManager.
type DXGIDeviceManager struct {
	com.Object
}

func (*DXGIDeviceManager) IID() com.GUID { return IID_IMFDXGIDeviceManager }

func (m *DXGIDeviceManager) OpenDeviceHandle() (uintptr, error) {
	return openDeviceHandle(&m.Object, slotDXGIOpenDeviceHandle, "IMFDXGIDeviceManager::OpenDeviceHandle")
}

func (m *DXGIDeviceManager) CloseDeviceHandle(device uintptr) error {
	return m.Call(slotDXGICloseDeviceHandle, device).Check("IMFDXGIDeviceManager::CloseDeviceHandle")
}

// Direct3DDeviceManager9 is a reference to an IDirect3DDeviceManager9.
type Direct3DDeviceManager9 struct {
	com.Object
}

func (*Direct3DDeviceManager9) IID() com.GUID { return IID_IDirect3DDeviceManager9 }

func (m *Direct3DDeviceManager9) OpenDeviceHandle() (uintptr, error) {
	return openDeviceHandle(&m.Object, slotD3D9OpenDeviceHandle, "IDirect3DDeviceManager9::OpenDeviceHandle")
}

func (m *Direct3DDeviceManager9) CloseDeviceHandle(device uintptr) error {
	return m.Call(slotD3D9CloseDeviceHandle, device).Check("IDirect3DDeviceManager9::CloseDeviceHandle")
}

func openDeviceHandle(o *com.Object, slot int, op string) (uintptr, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	h := new(uintptr)
	if err := o.Call(slot, com.Addr(&pins, h)).Check(op); err != nil {
		return 0, err
	}
	return *h, nil
}

// deviceManagerKinds lists the interfaces a SetD3DManager payload is queried
// for, in order.
var deviceManagerKinds = []struct {
	iid    com.GUID
	attach func(com.Handle) DeviceManager
}{
	{IID_IMFDXGIDeviceManager, func(h com.Handle) DeviceManager { return &DXGIDeviceManager{com.Attach(h)} }},
	{IID_IDirect3DDeviceManager9, func(h com.Handle) DeviceManager { return &Direct3DDeviceManager9{com.Attach(h)} }},
}

// queryDeviceManager returns the first device manager interface the object
// at ptr answers, or nil.
func queryDeviceManager(ptr com.Handle) DeviceManager {
	for _, k := range deviceManagerKinds {
		h, r := com.QueryInterface(ptr, k.iid)
		if r.Succeeded() && h != 0 {
			return k.attach(h)
		}
	}
	return nil
}
