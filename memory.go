package mf

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/thesyncim/mf/com"
	"go.uber.org/multierr"
)

// MF_E_INVALIDTYPE is returned when an attribute holds a different type.
const MF_E_INVALIDTYPE com.Result = -0x3FF2C943 // 0xC00D36BD

func init() {
	com.RegisterResultName(MF_E_INVALIDTYPE, "MF_E_INVALIDTYPE")
}

// memoryAttributes is an attribute store holding UINT32, UINT64 and GUID
// values.
type memoryAttributes struct {
	mu    sync.RWMutex
	items map[com.GUID]any
}

func newMemoryAttributes() *memoryAttributes {
	return &memoryAttributes{items: make(map[com.GUID]any)}
}

func getAttr[V any](a *memoryAttributes, key com.GUID) (V, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var zero V
	raw, ok := a.items[key]
	if !ok {
		return zero, MF_E_ATTRIBUTENOTFOUND
	}
	v, ok := raw.(V)
	if !ok {
		return zero, MF_E_INVALIDTYPE
	}
	return v, nil
}

func (a *memoryAttributes) set(key com.GUID, v any) error {
	a.mu.Lock()
	a.items[key] = v
	a.mu.Unlock()
	return nil
}

func (a *memoryAttributes) GetUINT32(key com.GUID) (uint32, error) { return getAttr[uint32](a, key) }
func (a *memoryAttributes) GetUINT64(key com.GUID) (uint64, error) { return getAttr[uint64](a, key) }
func (a *memoryAttributes) GetGUID(key com.GUID) (com.GUID, error) { return getAttr[com.GUID](a, key) }

func (a *memoryAttributes) SetUINT32(key com.GUID, v uint32) error { return a.set(key, v) }
func (a *memoryAttributes) SetUINT64(key com.GUID, v uint64) error { return a.set(key, v) }
func (a *memoryAttributes) SetGUID(key com.GUID, v com.GUID) error { return a.set(key, v) }

func (a *memoryAttributes) DeleteItem(key com.GUID) error {
	a.mu.Lock()
	delete(a.items, key)
	a.mu.Unlock()
	return nil
}

func (a *memoryAttributes) DeleteAllItems() error {
	a.mu.Lock()
	clear(a.items)
	a.mu.Unlock()
	return nil
}

func (a *memoryAttributes) GetCount() (uint32, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return uint32(len(a.items)), nil
}

type mediaBufferImpl interface {
	// Lock returns the memory with the current length as len and the
	// maximum length as cap. The memory stays at the same address for the
	// life of the buffer.
	Lock() ([]byte, error)
	Unlock() error
	GetCurrentLength() (uint32, error)
	SetCurrentLength(n uint32) error
	GetMaxLength() (uint32, error)
}

type mediaTypeImpl interface {
	attributeStore
	GetMajorType() (com.GUID, error)
	IsCompressedFormat() (bool, error)
}

type sampleImpl interface {
	attributeStore
	GetSampleFlags() (uint32, error)
	SetSampleFlags(flags uint32) error
	GetSampleTime() (int64, error)
	SetSampleTime(t int64) error
	GetSampleDuration() (int64, error)
	SetSampleDuration(d int64) error
	GetBufferCount() (uint32, error)
	GetBufferByIndex(i uint32) (*MediaBuffer, error)
	ConvertToContiguousBuffer() (*MediaBuffer, error)
	AddBuffer(b *MediaBuffer) error
	RemoveBufferByIndex(i uint32) error
	RemoveAllBuffers() error
	GetTotalLength() (uint32, error)
}

type mediaEventImpl interface {
	attributeStore
	GetType() (MediaEventType, error)
	GetExtendedType() (com.GUID, error)
	GetStatus() (com.Result, error)
}

var (
	attributesContract  *com.Contract[attributeStore]
	mediaBufferContract *com.Contract[mediaBufferImpl]
	mediaTypeContract   *com.Contract[mediaTypeImpl]
	sampleContract      *com.Contract[sampleImpl]
	mediaEventContract  *com.Contract[mediaEventImpl]
)

// uintptrOfBytes returns the address Lock hands to native callers. Buffers pin
// their data for their whole life.
func uintptrOfBytes(p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))
}

func init() {
	mediaBufferContract = com.NewContract[mediaBufferImpl]("IMFMediaBuffer", IID_IMFMediaBuffer, mediaBufferMethods, func(b *com.TableBuilder) {
		b.Add("Lock", func(this, ppData, pMax, pCur, _ uintptr) uintptr {
			return mediaBufferContract.Dispatch(this, "Lock", func(m mediaBufferImpl) error {
				if err := com.RequirePointers(ppData); err != nil {
					return err
				}
				data, err := m.Lock()
				if err != nil {
					return err
				}
				var addr uintptr
				if cap(data) > 0 {
					addr = uintptrOfBytes(data)
				}
				_ = com.Store(ppData, addr)
				if pMax != 0 {
					_ = com.Store(pMax, uint32(cap(data)))
				}
				if pCur != 0 {
					_ = com.Store(pCur, uint32(len(data)))
				}
				return nil
			})
		})
		b.Add("Unlock", func(this, _, _, _, _ uintptr) uintptr {
			return mediaBufferContract.Dispatch(this, "Unlock", func(m mediaBufferImpl) error {
				return m.Unlock()
			})
		})
		b.Add("GetCurrentLength", func(this, out, _, _, _ uintptr) uintptr {
			return mediaBufferContract.Dispatch(this, "GetCurrentLength", func(m mediaBufferImpl) error {
				return storeOut(out, m.GetCurrentLength)
			})
		})
		b.Add("SetCurrentLength", func(this, n, _, _, _ uintptr) uintptr {
			return mediaBufferContract.Dispatch(this, "SetCurrentLength", func(m mediaBufferImpl) error {
				return m.SetCurrentLength(uint32(n))
			})
		})
		b.Add("GetMaxLength", func(this, out, _, _, _ uintptr) uintptr {
			return mediaBufferContract.Dispatch(this, "GetMaxLength", func(m mediaBufferImpl) error {
				return storeOut(out, m.GetMaxLength)
			})
		})
	})

	mediaTypeContract = com.NewContract[mediaTypeImpl]("IMFMediaType", IID_IMFMediaType, mediaTypeMethods, func(b *com.TableBuilder) {
		b.Inherits(IID_IMFAttributes)
		addAttributeSlots(b, func() *com.Contract[mediaTypeImpl] { return mediaTypeContract })
		b.Add("GetMajorType", func(this, out, _, _, _ uintptr) uintptr {
			return mediaTypeContract.Dispatch(this, "GetMajorType", func(m mediaTypeImpl) error {
				return storeOut(out, m.GetMajorType)
			})
		})
		b.Add("IsCompressedFormat", func(this, out, _, _, _ uintptr) uintptr {
			return mediaTypeContract.Dispatch(this, "IsCompressedFormat", func(m mediaTypeImpl) error {
				return storeOut(out, func() (int32, error) {
					ok, err := m.IsCompressedFormat()
					return boolToInt32(ok), err
				})
			})
		})
		b.AddNotImplemented("IsEqual", "GetRepresentation", "FreeRepresentation")
	})

	sampleContract = com.NewContract[sampleImpl]("IMFSample", IID_IMFSample, sampleMethods, func(b *com.TableBuilder) {
		b.Inherits(IID_IMFAttributes)
		addAttributeSlots(b, func() *com.Contract[sampleImpl] { return sampleContract })
		b.Add("GetSampleFlags", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetSampleFlags", func(s sampleImpl) error {
				return storeOut(out, s.GetSampleFlags)
			})
		})
		b.Add("SetSampleFlags", func(this, flags, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "SetSampleFlags", func(s sampleImpl) error {
				return s.SetSampleFlags(uint32(flags))
			})
		})
		b.Add("GetSampleTime", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetSampleTime", func(s sampleImpl) error {
				return storeOut(out, s.GetSampleTime)
			})
		})
		b.Add("SetSampleTime", func(this, t, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "SetSampleTime", func(s sampleImpl) error {
				return s.SetSampleTime(int64(t))
			})
		})
		b.Add("GetSampleDuration", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetSampleDuration", func(s sampleImpl) error {
				return storeOut(out, s.GetSampleDuration)
			})
		})
		b.Add("SetSampleDuration", func(this, d, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "SetSampleDuration", func(s sampleImpl) error {
				return s.SetSampleDuration(int64(d))
			})
		})
		b.Add("GetBufferCount", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetBufferCount", func(s sampleImpl) error {
				return storeOut(out, s.GetBufferCount)
			})
		})
		b.Add("GetBufferByIndex", func(this, i, out, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetBufferByIndex", func(s sampleImpl) error {
				return storeObject(out, func() (*MediaBuffer, error) { return s.GetBufferByIndex(uint32(i)) })
			})
		})
		b.Add("ConvertToContiguousBuffer", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "ConvertToContiguousBuffer", func(s sampleImpl) error {
				return storeObject(out, s.ConvertToContiguousBuffer)
			})
		})
		b.Add("AddBuffer", func(this, buf, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "AddBuffer", func(s sampleImpl) error {
				if err := com.RequirePointers(buf); err != nil {
					return err
				}
				return s.AddBuffer(AttachMediaBuffer(com.Handle(buf)))
			})
		})
		b.Add("RemoveBufferByIndex", func(this, i, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "RemoveBufferByIndex", func(s sampleImpl) error {
				return s.RemoveBufferByIndex(uint32(i))
			})
		})
		b.Add("RemoveAllBuffers", func(this, _, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "RemoveAllBuffers", func(s sampleImpl) error {
				return s.RemoveAllBuffers()
			})
		})
		b.Add("GetTotalLength", func(this, out, _, _, _ uintptr) uintptr {
			return sampleContract.Dispatch(this, "GetTotalLength", func(s sampleImpl) error {
				return storeOut(out, s.GetTotalLength)
			})
		})
		b.AddNotImplemented("CopyToBuffer")
	})

	mediaEventContract = com.NewContract[mediaEventImpl]("IMFMediaEvent", IID_IMFMediaEvent, mediaEventMethods, func(b *com.TableBuilder) {
		b.Inherits(IID_IMFAttributes)
		addAttributeSlots(b, func() *com.Contract[mediaEventImpl] { return mediaEventContract })
		b.Add("GetType", func(this, out, _, _, _ uintptr) uintptr {
			return mediaEventContract.Dispatch(this, "GetType", func(e mediaEventImpl) error {
				return storeOut(out, e.GetType)
			})
		})
		b.Add("GetExtendedType", func(this, out, _, _, _ uintptr) uintptr {
			return mediaEventContract.Dispatch(this, "GetExtendedType", func(e mediaEventImpl) error {
				return storeOut(out, e.GetExtendedType)
			})
		})
		b.Add("GetStatus", func(this, out, _, _, _ uintptr) uintptr {
			return mediaEventContract.Dispatch(this, "GetStatus", func(e mediaEventImpl) error {
				return storeOut(out, e.GetStatus)
			})
		})
		b.AddNotImplemented("GetValue")
	})

	// Registered last so that the derived contracts are tried first by
	// com.ToCallbackPtr.
	attributesContract = com.NewContract[attributeStore]("IMFAttributes", IID_IMFAttributes, attributesMethods, func(b *com.TableBuilder) {
		addAttributeSlots(b, func() *com.Contract[attributeStore] { return attributesContract })
	})
}

// NewMediaAttributes returns an empty attribute store.
func NewMediaAttributes() *MediaAttributes {
	return AttachMediaAttributes(attributesContract.Wrap(newMemoryAttributes()))
}

// memoryBuffer is an IMFMediaBuffer over pinned Go memory.
type memoryBuffer struct {
	mu     sync.Mutex
	pins   runtime.Pinner
	data   []byte
	cur    uint32
	locked int
}

// NewMemoryBuffer returns an empty buffer that can hold maxLength bytes.
func NewMemoryBuffer(maxLength uint32) *MediaBuffer {
	m := &memoryBuffer{data: make([]byte, maxLength)}
	if maxLength > 0 {
		m.pins.Pin(&m.data[0])
	}
	return AttachMediaBuffer(mediaBufferContract.Wrap(m))
}

// NewMemoryBufferFrom returns a buffer holding a copy of p.
func NewMemoryBufferFrom(p []byte) *MediaBuffer {
	b := NewMemoryBuffer(uint32(len(p)))
	m := mediaBufferContract.Unwrap(b.NativePointer()).(*memoryBuffer)
	copy(m.data, p)
	m.cur = uint32(len(p))
	return b
}

func (m *memoryBuffer) Lock() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked++
	return m.data[:m.cur:len(m.data)], nil
}

func (m *memoryBuffer) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked == 0 {
		return MF_E_INVALIDREQUEST
	}
	m.locked--
	return nil
}

func (m *memoryBuffer) GetCurrentLength() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur, nil
}

func (m *memoryBuffer) SetCurrentLength(n uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(n) > len(m.data) {
		return fmt.Errorf("current length %d exceeds maximum %d: %w", n, len(m.data), com.E_INVALIDARG)
	}
	m.cur = n
	return nil
}

func (m *memoryBuffer) GetMaxLength() (uint32, error) {
	return uint32(len(m.data)), nil
}

func (m *memoryBuffer) Close() error {
	m.pins.Unpin()
	return nil
}

// memoryMediaType is an IMFMediaType over an attribute map.
type memoryMediaType struct {
	*memoryAttributes
}

// NewMediaType returns a media type with MF_MT_MAJOR_TYPE and MF_MT_SUBTYPE
// set. Further attributes are set through the returned object.
func NewMediaType(majorType, subtype com.GUID) *MediaType {
	m := &memoryMediaType{memoryAttributes: newMemoryAttributes()}
	_ = m.SetGUID(MF_MT_MAJOR_TYPE, majorType)
	_ = m.SetGUID(MF_MT_SUBTYPE, subtype)
	return AttachMediaType(mediaTypeContract.Wrap(m))
}

func (m *memoryMediaType) GetMajorType() (com.GUID, error) {
	return m.GetGUID(MF_MT_MAJOR_TYPE)
}

func (m *memoryMediaType) IsCompressedFormat() (bool, error) {
	sub, err := m.GetGUID(MF_MT_SUBTYPE)
	if err != nil {
		return false, err
	}
	_, ok := codecForSubtype(sub)
	return ok, nil
}

// memorySample is an IMFSample that owns its buffers.
type memorySample struct {
	*memoryAttributes
	mu       sync.Mutex
	flags    uint32
	time     int64
	duration int64
	buffers  []*MediaBuffer
}

// NewMemorySample returns a sample with no buffers.
func NewMemorySample() *Sample {
	s := &memorySample{memoryAttributes: newMemoryAttributes()}
	return AttachSample(sampleContract.Wrap(s))
}

// NewMemorySampleFrom returns a sample with one buffer holding a copy of p.
func NewMemorySampleFrom(p []byte, time, duration int64) *Sample {
	s := &memorySample{memoryAttributes: newMemoryAttributes(), time: time, duration: duration}
	s.buffers = append(s.buffers, NewMemoryBufferFrom(p))
	return AttachSample(sampleContract.Wrap(s))
}

func (s *memorySample) GetSampleFlags() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags, nil
}

func (s *memorySample) SetSampleFlags(flags uint32) error {
	s.mu.Lock()
	s.flags = flags
	s.mu.Unlock()
	return nil
}

func (s *memorySample) GetSampleTime() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time, nil
}

func (s *memorySample) SetSampleTime(t int64) error {
	s.mu.Lock()
	s.time = t
	s.mu.Unlock()
	return nil
}

func (s *memorySample) GetSampleDuration() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration, nil
}

func (s *memorySample) SetSampleDuration(d int64) error {
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
	return nil
}

func (s *memorySample) GetBufferCount() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.buffers)), nil
}

func (s *memorySample) GetBufferByIndex(i uint32) (*MediaBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(i) >= len(s.buffers) {
		return nil, com.E_INVALIDARG
	}
	return s.buffers[i], nil
}

// ConvertToContiguousBuffer merges several buffers into one, which replaces
// them in the sample.
func (s *memorySample) ConvertToContiguousBuffer() (*MediaBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch len(s.buffers) {
	case 0:
		return nil, MF_E_INVALIDREQUEST
	case 1:
		return s.buffers[0], nil
	}
	var joined []byte
	for _, b := range s.buffers {
		p, err := b.Bytes()
		if err != nil {
			return nil, err
		}
		joined = append(joined, p...)
	}
	merged := NewMemoryBufferFrom(joined)
	for _, b := range s.buffers {
		b.Release()
	}
	s.buffers = []*MediaBuffer{merged}
	return merged, nil
}

func (s *memorySample) AddBuffer(b *MediaBuffer) error {
	b.AddRef()
	s.mu.Lock()
	s.buffers = append(s.buffers, AttachMediaBuffer(b.NativePointer()))
	s.mu.Unlock()
	return nil
}

func (s *memorySample) RemoveBufferByIndex(i uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(i) >= len(s.buffers) {
		return com.E_INVALIDARG
	}
	s.buffers[i].Release()
	s.buffers = append(s.buffers[:i], s.buffers[i+1:]...)
	return nil
}

func (s *memorySample) RemoveAllBuffers() error {
	s.mu.Lock()
	buffers := s.buffers
	s.buffers = nil
	s.mu.Unlock()
	for _, b := range buffers {
		b.Release()
	}
	return nil
}

func (s *memorySample) GetTotalLength() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint32
	var errs error
	for _, b := range s.buffers {
		n, err := b.CurrentLength()
		errs = multierr.Append(errs, err)
		total += n
	}
	return total, errs
}

func (s *memorySample) Close() error {
	return s.RemoveAllBuffers()
}

// memoryEvent is an IMFMediaEvent carrying a type and status.
type memoryEvent struct {
	*memoryAttributes
	typ      MediaEventType
	extended com.GUID
	status   com.Result
}

// NewMediaEvent returns an event of the given type and status.
func NewMediaEvent(typ MediaEventType, extended com.GUID, status com.Result) *MediaEvent {
	e := &memoryEvent{memoryAttributes: newMemoryAttributes(), typ: typ, extended: extended, status: status}
	return AttachMediaEvent(mediaEventContract.Wrap(e))
}

func (e *memoryEvent) GetType() (MediaEventType, error)   { return e.typ, nil }
func (e *memoryEvent) GetExtendedType() (com.GUID, error) { return e.extended, nil }
func (e *memoryEvent) GetStatus() (com.Result, error)     { return e.status, nil }

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
