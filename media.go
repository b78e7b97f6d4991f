package mf

import (
	"fmt"
	"runtime"

	"github.com/thesyncim/mf/com"
)

// IMFMediaType slots following IMFAttributes.
const (
	slotMediaTypeGetMajorType = attributesEnd + iota
	slotMediaTypeIsCompressedFormat
	slotMediaTypeIsEqual
	slotMediaTypeGetRepresentation
	slotMediaTypeFreeRepresentation

	mediaTypeMethods = attributesMethods + 5
)

// IMFSample slots following IMFAttributes.
const (
	slotSampleGetSampleFlags = attributesEnd + iota
	slotSampleSetSampleFlags
	slotSampleGetSampleTime
	slotSampleSetSampleTime
	slotSampleGetSampleDuration
	slotSampleSetSampleDuration
	slotSampleGetBufferCount
	slotSampleGetBufferByIndex
	slotSampleConvertToContiguousBuffer
	slotSampleAddBuffer
	slotSampleRemoveBufferByIndex
	slotSampleRemoveAllBuffers
	slotSampleGetTotalLength
	slotSampleCopyToBuffer

	sampleMethods = attributesMethods + 14
)

// IMFMediaBuffer slots.
const (
	slotBufferLock = iota + 3
	slotBufferUnlock
	slotBufferGetCurrentLength
	slotBufferSetCurrentLength
	slotBufferGetMaxLength

	mediaBufferMethods = 5
)

// IMFMediaEvent slots following IMFAttributes.
const (
	slotEventGetType = attributesEnd + iota
	slotEventGetExtendedType
	slotEventGetStatus
	slotEventGetValue

	mediaEventMethods = attributesMethods + 4
)

// IMFCollection slots.
const (
	slotCollectionGetElementCount = 3
)

var IID_IMFCollection = com.MustParseGUID("5bc8a76b-869a-46a3-9b03-fa218a66aebe")

// MediaType is a reference to an IMFMediaType.
type MediaType struct {
	MediaAttributes
}

// AttachMediaType takes ownership of one reference to ptr. It returns nil for
// a null pointer.
func AttachMediaType(ptr com.Handle) *MediaType {
	if ptr == 0 {
		return nil
	}
	return &MediaType{MediaAttributes{Object: com.Attach(ptr)}}
}

// MajorType returns the major type GUID (video, audio, ...).
func (m *MediaType) MajorType() (com.GUID, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(com.GUID)
	if err := m.Call(slotMediaTypeGetMajorType, com.Addr(&pins, v)).Check("IMFMediaType::GetMajorType"); err != nil {
		return com.GUID{}, err
	}
	return *v, nil
}

// IsCompressed reports whether the type describes a compressed format.
func (m *MediaType) IsCompressed() (bool, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(int32)
	if err := m.Call(slotMediaTypeIsCompressedFormat, com.Addr(&pins, v)).Check("IMFMediaType::IsCompressedFormat"); err != nil {
		return false, err
	}
	return *v != 0, nil
}

// Subtype returns the MF_MT_SUBTYPE attribute.
func (m *MediaType) Subtype() (com.GUID, error) {
	return m.GetGUID(MF_MT_SUBTYPE)
}

func (m *MediaType) String() string {
	if m == nil || m.IsNull() {
		return "MediaType(nil)"
	}
	major, _ := m.MajorType()
	sub, _ := m.Subtype()
	return fmt.Sprintf("MediaType(%s %s)", subtypeName(major), subtypeName(sub))
}

// Sample is a reference to an IMFSample.
type Sample struct {
	MediaAttributes
}

// AttachSample takes ownership of one reference to ptr. It returns nil for a
// null pointer.
func AttachSample(ptr com.Handle) *Sample {
	if ptr == 0 {
		return nil
	}
	return &Sample{MediaAttributes{Object: com.Attach(ptr)}}
}

func (s *Sample) int64Out(slot int, op string) (int64, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(int64)
	if err := s.Call(slot, com.Addr(&pins, v)).Check(op); err != nil {
		return 0, err
	}
	return *v, nil
}

func (s *Sample) uint32Out(slot int, op string) (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := s.Call(slot, com.Addr(&pins, v)).Check(op); err != nil {
		return 0, err
	}
	return *v, nil
}

// SampleTime returns the presentation time in 100-ns units.
func (s *Sample) SampleTime() (int64, error) {
	return s.int64Out(slotSampleGetSampleTime, "IMFSample::GetSampleTime")
}

func (s *Sample) SetSampleTime(t int64) error {
	return s.Call(slotSampleSetSampleTime, uintptr(t)).Check("IMFSample::SetSampleTime")
}

// SampleDuration returns the duration in 100-ns units.
func (s *Sample) SampleDuration() (int64, error) {
	return s.int64Out(slotSampleGetSampleDuration, "IMFSample::GetSampleDuration")
}

func (s *Sample) SetSampleDuration(d int64) error {
	return s.Call(slotSampleSetSampleDuration, uintptr(d)).Check("IMFSample::SetSampleDuration")
}

func (s *Sample) SampleFlags() (uint32, error) {
	return s.uint32Out(slotSampleGetSampleFlags, "IMFSample::GetSampleFlags")
}

func (s *Sample) SetSampleFlags(flags uint32) error {
	return s.Call(slotSampleSetSampleFlags, uintptr(flags)).Check("IMFSample::SetSampleFlags")
}

func (s *Sample) BufferCount() (uint32, error) {
	return s.uint32Out(slotSampleGetBufferCount, "IMFSample::GetBufferCount")
}

// TotalLength returns the sum of the current lengths of all buffers.
func (s *Sample) TotalLength() (uint32, error) {
	return s.uint32Out(slotSampleGetTotalLength, "IMFSample::GetTotalLength")
}

// BufferByIndex returns buffer i. The caller owns the result.
func (s *Sample) BufferByIndex(i uint32) (*MediaBuffer, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	out := new(uintptr)
	if err := s.Call(slotSampleGetBufferByIndex, uintptr(i), com.Addr(&pins, out)).Check("IMFSample::GetBufferByIndex"); err != nil {
		return nil, err
	}
	return AttachMediaBuffer(com.Handle(*out)), nil
}

// ContiguousBuffer returns all of the sample's data in one buffer. The caller
// owns the result.
func (s *Sample) ContiguousBuffer() (*MediaBuffer, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	out := new(uintptr)
	if err := s.Call(slotSampleConvertToContiguousBuffer, com.Addr(&pins, out)).Check("IMFSample::ConvertToContiguousBuffer"); err != nil {
		return nil, err
	}
	return AttachMediaBuffer(com.Handle(*out)), nil
}

// AddBuffer appends b. The sample takes its own reference.
func (s *Sample) AddBuffer(b *MediaBuffer) error {
	return s.Call(slotSampleAddBuffer, uintptr(com.PointerOf(b))).Check("IMFSample::AddBuffer")
}

func (s *Sample) RemoveAllBuffers() error {
	return s.Call(slotSampleRemoveAllBuffers).Check("IMFSample::RemoveAllBuffers")
}

// Bytes copies the sample's data out of its contiguous buffer.
func (s *Sample) Bytes() ([]byte, error) {
	b, err := s.ContiguousBuffer()
	if err != nil {
		return nil, err
	}
	defer b.Release()
	return b.Bytes()
}

// MediaBuffer is a reference to an IMFMediaBuffer.
type MediaBuffer struct {
	com.Object
}

// AttachMediaBuffer takes ownership of one reference to ptr. It returns nil
// for a null pointer.
func AttachMediaBuffer(ptr com.Handle) *MediaBuffer {
	if ptr == 0 {
		return nil
	}
	return &MediaBuffer{Object: com.Attach(ptr)}
}

// Lock gives access to the buffer memory until Unlock. The returned slice has
// the current length as len and the maximum length as cap.
func (b *MediaBuffer) Lock() ([]byte, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	data, maxLen, curLen := new(uintptr), new(uint32), new(uint32)
	err := b.Call(slotBufferLock, com.Addr(&pins, data), com.Addr(&pins, maxLen), com.Addr(&pins, curLen)).Check("IMFMediaBuffer::Lock")
	if err != nil {
		return nil, err
	}
	if *curLen > *maxLen {
		_ = b.Unlock()
		return nil, fmt.Errorf("IMFMediaBuffer::Lock: current length %d exceeds maximum %d", *curLen, *maxLen)
	}
	return com.View[byte](*data, *maxLen)[:*curLen:*maxLen], nil
}

func (b *MediaBuffer) Unlock() error {
	return b.Call(slotBufferUnlock).Check("IMFMediaBuffer::Unlock")
}

func (b *MediaBuffer) uint32Out(slot int, op string) (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := b.Call(slot, com.Addr(&pins, v)).Check(op); err != nil {
		return 0, err
	}
	return *v, nil
}

func (b *MediaBuffer) CurrentLength() (uint32, error) {
	return b.uint32Out(slotBufferGetCurrentLength, "IMFMediaBuffer::GetCurrentLength")
}

func (b *MediaBuffer) SetCurrentLength(n uint32) error {
	return b.Call(slotBufferSetCurrentLength, uintptr(n)).Check("IMFMediaBuffer::SetCurrentLength")
}

func (b *MediaBuffer) MaxLength() (uint32, error) {
	return b.uint32Out(slotBufferGetMaxLength, "IMFMediaBuffer::GetMaxLength")
}

// Bytes returns a copy of the valid data.
func (b *MediaBuffer) Bytes() ([]byte, error) {
	data, err := b.Lock()
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), data...)
	return out, b.Unlock()
}

// SetBytes replaces the buffer contents with p.
func (b *MediaBuffer) SetBytes(p []byte) error {
	data, err := b.Lock()
	if err != nil {
		return err
	}
	if len(p) > cap(data) {
		_ = b.Unlock()
		return fmt.Errorf("IMFMediaBuffer: %d bytes do not fit in %d: %w", len(p), cap(data), MF_E_BUFFERTOOSMALL)
	}
	copy(data[:len(p)], p)
	if err := b.Unlock(); err != nil {
		return err
	}
	return b.SetCurrentLength(uint32(len(p)))
}

// MediaEventType identifies a media event (MediaEventType).
type MediaEventType uint32

// MediaEvent is a reference to an IMFMediaEvent.
type MediaEvent struct {
	MediaAttributes
}

// AttachMediaEvent takes ownership of one reference to ptr. It returns nil
// for a null pointer.
func AttachMediaEvent(ptr com.Handle) *MediaEvent {
	if ptr == 0 {
		return nil
	}
	return &MediaEvent{MediaAttributes{Object: com.Attach(ptr)}}
}

func (e *MediaEvent) Type() (MediaEventType, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := e.Call(slotEventGetType, com.Addr(&pins, v)).Check("IMFMediaEvent::GetType"); err != nil {
		return 0, err
	}
	return MediaEventType(*v), nil
}

func (e *MediaEvent) ExtendedType() (com.GUID, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(com.GUID)
	if err := e.Call(slotEventGetExtendedType, com.Addr(&pins, v)).Check("IMFMediaEvent::GetExtendedType"); err != nil {
		return com.GUID{}, err
	}
	return *v, nil
}

// Status returns the status the event carries.
func (e *MediaEvent) Status() (com.Result, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(int32)
	if err := e.Call(slotEventGetStatus, com.Addr(&pins, v)).Check("IMFMediaEvent::GetStatus"); err != nil {
		return 0, err
	}
	return com.Result(*v), nil
}

// Collection is a reference to an IMFCollection, used for the events a
// transform attaches to an output buffer.
type Collection struct {
	com.Object
}

// AttachCollection takes ownership of one reference to ptr. It returns nil
// for a null pointer.
func AttachCollection(ptr com.Handle) *Collection {
	if ptr == 0 {
		return nil
	}
	return &Collection{Object: com.Attach(ptr)}
}

func (c *Collection) Count() (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := c.Call(slotCollectionGetElementCount, com.Addr(&pins, v)).Check("IMFCollection::GetElementCount"); err != nil {
		return 0, err
	}
	return *v, nil
}
