package mf

import (
	"fmt"

	"github.com/thesyncim/mf/com"
)

// MessageType is MFT_MESSAGE_TYPE.
type MessageType uint32

const (
	MessageCommandFlush                MessageType = 0x00000000
	MessageCommandDrain                MessageType = 0x00000001
	MessageSetD3DManager               MessageType = 0x00000002
	MessageDropSamples                 MessageType = 0x00000003
	MessageCommandTick                 MessageType = 0x00000004
	MessageNotifyBeginStreaming        MessageType = 0x10000000
	MessageNotifyEndStreaming          MessageType = 0x10000001
	MessageNotifyEndOfStream           MessageType = 0x10000002
	MessageNotifyStartOfStream         MessageType = 0x10000003
	MessageNotifyReleaseResources      MessageType = 0x10000004
	MessageNotifyReacquireResources    MessageType = 0x10000005
	MessageNotifyEvent                 MessageType = 0x10000006
	MessageCommandSetOutputStreamState MessageType = 0x10000007
	MessageCommandFlushOutputStream    MessageType = 0x10000008
	MessageCommandMarker               MessageType = 0x20000000
)

var messageTypeNames = map[MessageType]string{
	MessageCommandFlush:                "MFT_MESSAGE_COMMAND_FLUSH",
	MessageCommandDrain:                "MFT_MESSAGE_COMMAND_DRAIN",
	MessageSetD3DManager:               "MFT_MESSAGE_SET_D3D_MANAGER",
	MessageDropSamples:                 "MFT_MESSAGE_DROP_SAMPLES",
	MessageCommandTick:                 "MFT_MESSAGE_COMMAND_TICK",
	MessageNotifyBeginStreaming:        "MFT_MESSAGE_NOTIFY_BEGIN_STREAMING",
	MessageNotifyEndStreaming:          "MFT_MESSAGE_NOTIFY_END_STREAMING",
	MessageNotifyEndOfStream:           "MFT_MESSAGE_NOTIFY_END_OF_STREAM",
	MessageNotifyStartOfStream:         "MFT_MESSAGE_NOTIFY_START_OF_STREAM",
	MessageNotifyReleaseResources:      "MFT_MESSAGE_NOTIFY_RELEASE_RESOURCES",
	MessageNotifyReacquireResources:    "MFT_MESSAGE_NOTIFY_REACQUIRE_RESOURCES",
	MessageNotifyEvent:                 "MFT_MESSAGE_NOTIFY_EVENT",
	MessageCommandSetOutputStreamState: "MFT_MESSAGE_COMMAND_SET_OUTPUT_STREAM_STATE",
	MessageCommandFlushOutputStream:    "MFT_MESSAGE_COMMAND_FLUSH_OUTPUT_STREAM",
	MessageCommandMarker:               "MFT_MESSAGE_COMMAND_MARKER",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MFT_MESSAGE(%#x)", uint32(t))
}

// TransformMessage is a message for Transform.ProcessMessage. Param is the
// raw ULONG_PTR payload the message travels with.
type TransformMessage interface {
	Type() MessageType
	Param() uintptr
}

// Message is a message with no typed payload.
type Message struct {
	typ   MessageType
	param uintptr
}

func NewMessage(typ MessageType, param uintptr) *Message {
	return &Message{typ: typ, param: param}
}

func (m *Message) Type() MessageType { return m.typ }
func (m *Message) Param() uintptr    { return m.param }

func (m *Message) String() string {
	return fmt.Sprintf("%s(%#x)", m.typ, m.param)
}

// SetD3DManagerMessage hands the transform a device manager. A nil Manager
// asks the transform to stop using hardware acceleration.
type SetD3DManagerMessage struct {
	Manager DeviceManager
}

func (*SetD3DManagerMessage) Type() MessageType { return MessageSetD3DManager }

func (m *SetD3DManagerMessage) Param() uintptr {
	if m.Manager == nil {
		return 0
	}
	return uintptr(m.Manager.NativePointer())
}

// NotifyEndOfStreamMessage reports that an input stream has ended.
type NotifyEndOfStreamMessage struct {
	StreamID uint32
}

func (*NotifyEndOfStreamMessage) Type() MessageType { return MessageNotifyEndOfStream }
func (m *NotifyEndOfStreamMessage) Param() uintptr  { return uintptr(m.StreamID) }

// CommandMarkerMessage asks for a marker event once all input before it has
// been processed. Context is echoed in the event.
type CommandMarkerMessage struct {
	Context uintptr
}

func (*CommandMarkerMessage) Type() MessageType { return MessageCommandMarker }
func (m *CommandMarkerMessage) Param() uintptr  { return m.Context }

// NewTransformMessage builds the typed message for (typ, param).
//
// A MessageSetD3DManager payload is queried for IMFDXGIDeviceManager and then
// IDirect3DDeviceManager9; the message owns the interface it obtained and the
// caller releases it with ReleaseMessage. A payload answering neither yields
// a plain *Message carrying the raw pointer.
func NewTransformMessage(typ MessageType, param uintptr) TransformMessage {
	switch typ {
	case MessageSetD3DManager:
		if param == 0 {
			// MFT_MESSAGE_SET_D3D_MANAGER with a null manager tells the
			// transform to stop using hardware.
			return &SetD3DManagerMessage{}
		}
		if m := queryDeviceManager(com.Handle(param)); m != nil {
			return &SetD3DManagerMessage{Manager: m}
		}
		return NewMessage(typ, param)
	case MessageNotifyEndOfStream:
		return &NotifyEndOfStreamMessage{StreamID: uint32(param)}
	case MessageCommandMarker:
		return &CommandMarkerMessage{Context: param}
	}
	return NewMessage(typ, param)
}

// ReleaseMessage drops the references a message built by NewTransformMessage
// owns.
func ReleaseMessage(m TransformMessage) {
	if d, ok := m.(*SetD3DManagerMessage); ok && d.Manager != nil {
		d.Manager.Release()
	}
}
