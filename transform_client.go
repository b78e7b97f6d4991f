package mf

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/thesyncim/mf/com"
)

// ErrRetriesExhausted is returned by StreamIDs when the transform keeps
// reporting MF_E_BUFFERTOOSMALL past TransformClientConfig.MaxStreamIDRetries.
var ErrRetriesExhausted = errors.New("mf: stream ID retries exhausted")

// TransformClientConfig configures a TransformClient.
type TransformClientConfig struct {
	// MaxStreamIDRetries bounds how often StreamIDs retries after
	// MF_E_BUFFERTOOSMALL. Zero retries until the transform succeeds.
	MaxStreamIDRetries int
}

// DefaultTransformClientConfig returns the default client configuration.
func DefaultTransformClientConfig() TransformClientConfig {
	return TransformClientConfig{}
}

// TransformClient calls an IMFTransform through its vtable. The object may be
// native or a shadow of a Go Transform.
//
// TransformClient implements Transform with the raw protocol: every failure
// HRESULT is returned as an error wrapping a com.Result. The remaining methods
// translate the protocol's expected statuses (E_NOTIMPL,
// MF_E_NO_MORE_TYPES, MF_E_NOTACCEPTING, ...) into ordinary results.
type TransformClient struct {
	com.Object
	config TransformClientConfig
}

var _ Transform = (*TransformClient)(nil)

// NewTransformClient takes ownership of one reference to the IMFTransform at
// ptr.
func NewTransformClient(ptr com.Handle) *TransformClient {
	return NewTransformClientWithConfig(ptr, DefaultTransformClientConfig())
}

// NewTransformClientWithConfig is NewTransformClient with a configuration.
func NewTransformClientWithConfig(ptr com.Handle, config TransformClientConfig) *TransformClient {
	return &TransformClient{Object: com.Attach(ptr), config: config}
}

// WrapTransform exposes t through its IMFTransform table and returns a client
// for it. The shadow is destroyed when the client and every native holder
// have released it.
func WrapTransform(t Transform) *TransformClient {
	return NewTransformClient(TransformPointer(t))
}

// Close releases the client's reference.
func (c *TransformClient) Close() error {
	c.Release()
	return nil
}

func (c *TransformClient) uint32Out(slot int, op string, args ...uintptr) (uint32, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uint32)
	if err := c.Call(slot, append(args, com.Addr(&pins, v))...).Check(op); err != nil {
		return 0, err
	}
	return *v, nil
}

func (c *TransformClient) handleOut(slot int, op string, args ...uintptr) (com.Handle, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	v := new(uintptr)
	if err := c.Call(slot, append(args, com.Addr(&pins, v))...).Check(op); err != nil {
		return 0, err
	}
	return com.Handle(*v), nil
}

func (c *TransformClient) GetStreamLimits() (StreamLimits, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	l := new(StreamLimits)
	err := c.Call(slotGetStreamLimits,
		com.Addr(&pins, &l.InputMinimum), com.Addr(&pins, &l.InputMaximum),
		com.Addr(&pins, &l.OutputMinimum), com.Addr(&pins, &l.OutputMaximum),
	).Check("IMFTransform::GetStreamLimits")
	if err != nil {
		return StreamLimits{}, err
	}
	return *l, nil
}

func (c *TransformClient) GetStreamCount() (inputs, outputs uint32, err error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	in, out := new(uint32), new(uint32)
	if err := c.Call(slotGetStreamCount, com.Addr(&pins, in), com.Addr(&pins, out)).Check("IMFTransform::GetStreamCount"); err != nil {
		return 0, 0, err
	}
	return *in, *out, nil
}

func (c *TransformClient) GetStreamIDs(inputIDs, outputIDs []uint32) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	return c.Call(slotGetStreamIDs,
		uintptr(len(inputIDs)), com.SliceAddr(&pins, inputIDs),
		uintptr(len(outputIDs)), com.SliceAddr(&pins, outputIDs),
	).Check("IMFTransform::GetStreamIDs")
}

func (c *TransformClient) GetInputStreamInfo(inputStreamID uint32) (InputStreamInfo, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	info := new(InputStreamInfo)
	if err := c.Call(slotGetInputStreamInfo, uintptr(inputStreamID), com.Addr(&pins, info)).Check("IMFTransform::GetInputStreamInfo"); err != nil {
		return InputStreamInfo{}, err
	}
	return *info, nil
}

func (c *TransformClient) GetOutputStreamInfo(outputStreamID uint32) (OutputStreamInfo, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	info := new(OutputStreamInfo)
	if err := c.Call(slotGetOutputStreamInfo, uintptr(outputStreamID), com.Addr(&pins, info)).Check("IMFTransform::GetOutputStreamInfo"); err != nil {
		return OutputStreamInfo{}, err
	}
	return *info, nil
}

func (c *TransformClient) GetAttributes() (*MediaAttributes, error) {
	h, err := c.handleOut(slotGetAttributes, "IMFTransform::GetAttributes")
	return AttachMediaAttributes(h), err
}

func (c *TransformClient) GetInputStreamAttributes(inputStreamID uint32) (*MediaAttributes, error) {
	h, err := c.handleOut(slotGetInputStreamAttributes, "IMFTransform::GetInputStreamAttributes", uintptr(inputStreamID))
	return AttachMediaAttributes(h), err
}

func (c *TransformClient) GetOutputStreamAttributes(outputStreamID uint32) (*MediaAttributes, error) {
	h, err := c.handleOut(slotGetOutputStreamAttributes, "IMFTransform::GetOutputStreamAttributes", uintptr(outputStreamID))
	return AttachMediaAttributes(h), err
}

func (c *TransformClient) DeleteInputStream(streamID uint32) error {
	return c.Call(slotDeleteInputStream, uintptr(streamID)).Check("IMFTransform::DeleteInputStream")
}

func (c *TransformClient) AddInputStreams(streamIDs []uint32) error {
	var pins runtime.Pinner
	defer pins.Unpin()
	return c.Call(slotAddInputStreams, uintptr(len(streamIDs)), com.SliceAddr(&pins, streamIDs)).Check("IMFTransform::AddInputStreams")
}

func (c *TransformClient) GetInputAvailableType(inputStreamID, typeIndex uint32) (*MediaType, error) {
	h, err := c.handleOut(slotGetInputAvailableType, "IMFTransform::GetInputAvailableType", uintptr(inputStreamID), uintptr(typeIndex))
	return AttachMediaType(h), err
}

func (c *TransformClient) GetOutputAvailableType(outputStreamID, typeIndex uint32) (*MediaType, error) {
	h, err := c.handleOut(slotGetOutputAvailableType, "IMFTransform::GetOutputAvailableType", uintptr(outputStreamID), uintptr(typeIndex))
	return AttachMediaType(h), err
}

func (c *TransformClient) SetInputType(inputStreamID uint32, mediaType *MediaType, flags SetTypeFlags) error {
	return c.setInputType(inputStreamID, mediaType, flags).Check("IMFTransform::SetInputType")
}

func (c *TransformClient) setInputType(id uint32, mt *MediaType, flags SetTypeFlags) com.Result {
	return c.Call(slotSetInputType, uintptr(id), uintptr(com.PointerOf(mt)), uintptr(flags))
}

func (c *TransformClient) SetOutputType(outputStreamID uint32, mediaType *MediaType, flags SetTypeFlags) error {
	return c.setOutputType(outputStreamID, mediaType, flags).Check("IMFTransform::SetOutputType")
}

func (c *TransformClient) setOutputType(id uint32, mt *MediaType, flags SetTypeFlags) com.Result {
	return c.Call(slotSetOutputType, uintptr(id), uintptr(com.PointerOf(mt)), uintptr(flags))
}

func (c *TransformClient) GetInputCurrentType(inputStreamID uint32) (*MediaType, error) {
	h, err := c.handleOut(slotGetInputCurrentType, "IMFTransform::GetInputCurrentType", uintptr(inputStreamID))
	return AttachMediaType(h), err
}

func (c *TransformClient) GetOutputCurrentType(outputStreamID uint32) (*MediaType, error) {
	h, err := c.handleOut(slotGetOutputCurrentType, "IMFTransform::GetOutputCurrentType", uintptr(outputStreamID))
	return AttachMediaType(h), err
}

func (c *TransformClient) GetInputStatus(inputStreamID uint32) (InputStatusFlags, error) {
	v, err := c.uint32Out(slotGetInputStatus, "IMFTransform::GetInputStatus", uintptr(inputStreamID))
	return InputStatusFlags(v), err
}

func (c *TransformClient) GetOutputStatus() (OutputStatusFlags, error) {
	v, err := c.uint32Out(slotGetOutputStatus, "IMFTransform::GetOutputStatus")
	return OutputStatusFlags(v), err
}

func (c *TransformClient) SetOutputBounds(lowerBound, upperBound int64) error {
	return c.Call(slotSetOutputBounds, uintptr(lowerBound), uintptr(upperBound)).Check("IMFTransform::SetOutputBounds")
}

func (c *TransformClient) ProcessEvent(inputStreamID uint32, event *MediaEvent) error {
	return c.Call(slotProcessEvent, uintptr(inputStreamID), uintptr(com.PointerOf(event))).Check("IMFTransform::ProcessEvent")
}

func (c *TransformClient) ProcessMessage(message TransformMessage) error {
	return c.Call(slotProcessMessage, uintptr(message.Type()), message.Param()).Check("IMFTransform::ProcessMessage")
}

func (c *TransformClient) ProcessInput(inputStreamID uint32, sample *Sample, flags uint32) error {
	return c.Call(slotProcessInput, uintptr(inputStreamID), uintptr(com.PointerOf(sample)), uintptr(flags)).Check("IMFTransform::ProcessInput")
}

// ProcessOutput passes buffers to the transform. Samples and event
// collections the transform supplies replace the elements' values; the
// caller owns them.
func (c *TransformClient) ProcessOutput(flags ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error) {
	var pins runtime.Pinner
	defer pins.Unpin()
	raw := make([]outputDataBufferABI, len(buffers))
	for i, b := range buffers {
		raw[i] = outputDataBufferABI{
			StreamID: b.StreamID,
			Sample:   uintptr(com.PointerOf(b.Sample)),
			Status:   uint32(b.Status),
			Events:   uintptr(com.PointerOf(b.Events)),
		}
	}
	status := new(uint32)
	r := c.Call(slotProcessOutput, uintptr(flags), uintptr(len(raw)), com.SliceAddr(&pins, raw), com.Addr(&pins, status))
	for i := range buffers {
		b := &buffers[i]
		b.Status = OutputDataBufferStatus(raw[i].Status)
		if raw[i].Sample != uintptr(com.PointerOf(b.Sample)) {
			b.Sample = AttachSample(com.Handle(raw[i].Sample))
		}
		if raw[i].Events != uintptr(com.PointerOf(b.Events)) {
			b.Events = AttachCollection(com.Handle(raw[i].Events))
		}
	}
	return ProcessOutputStatus(*status), r.Check("IMFTransform::ProcessOutput")
}

// StreamIDs lists the input and output stream identifiers.
type StreamIDs struct {
	Input  []uint32
	Output []uint32
}

// TryGetStreamIDs fills the caller's arrays. It reports false when the
// transform does not implement GetStreamIDs, which means its streams are
// numbered consecutively from zero.
func (c *TransformClient) TryGetStreamIDs(inputIDs, outputIDs []uint32) (bool, error) {
	err := c.GetStreamIDs(inputIDs, outputIDs)
	if errors.Is(err, com.E_NOTIMPL) {
		return false, nil
	}
	return err == nil, err
}

// StreamIDs queries the stream counts and then the identifiers, starting over
// while the transform reports MF_E_BUFFERTOOSMALL (its streams changed in
// between). The boolean is false when the transform does not implement
// GetStreamIDs.
func (c *TransformClient) StreamIDs() (StreamIDs, bool, error) {
	for attempt := 0; ; attempt++ {
		in, out, err := c.GetStreamCount()
		if err != nil {
			return StreamIDs{}, false, err
		}
		ids := StreamIDs{Input: make([]uint32, in), Output: make([]uint32, out)}
		ok, err := c.TryGetStreamIDs(ids.Input, ids.Output)
		switch {
		case err == nil && !ok:
			return StreamIDs{}, false, nil
		case err == nil:
			return ids, true, nil
		case !errors.Is(err, MF_E_BUFFERTOOSMALL):
			return StreamIDs{}, false, err
		case c.config.MaxStreamIDRetries > 0 && attempt >= c.config.MaxStreamIDRetries:
			return StreamIDs{}, false, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}
	}
}

// InputAvailableTypes enumerates the preferred input types of a stream. The
// boolean is false when the transform does not implement the query. The
// caller owns the returned types.
func (c *TransformClient) InputAvailableTypes(inputStreamID uint32) ([]*MediaType, bool, error) {
	return enumerateTypes(func(i uint32) (*MediaType, error) {
		return c.GetInputAvailableType(inputStreamID, i)
	})
}

// OutputAvailableTypes is InputAvailableTypes for an output stream.
func (c *TransformClient) OutputAvailableTypes(outputStreamID uint32) ([]*MediaType, bool, error) {
	return enumerateTypes(func(i uint32) (*MediaType, error) {
		return c.GetOutputAvailableType(outputStreamID, i)
	})
}

// enumerateTypes calls get with increasing indices until MF_E_NO_MORE_TYPES.
// E_NOTIMPL at index 0 means the query is unsupported; any other failure
// releases the types collected so far.
func enumerateTypes(get func(index uint32) (*MediaType, error)) ([]*MediaType, bool, error) {
	types := []*MediaType{}
	for i := uint32(0); ; i++ {
		mt, err := get(i)
		switch {
		case err == nil:
			types = append(types, mt)
			continue
		case errors.Is(err, MF_E_NO_MORE_TYPES):
			return types, true, nil
		case i == 0 && errors.Is(err, com.E_NOTIMPL):
			return nil, false, nil
		}
		for _, t := range types {
			t.Release()
		}
		return nil, false, err
	}
}

// TryGetInputAvailableType returns the type at typeIndex, or false past the
// end of the list.
func (c *TransformClient) TryGetInputAvailableType(inputStreamID, typeIndex uint32) (*MediaType, bool, error) {
	return tryAvailableType(c.GetInputAvailableType(inputStreamID, typeIndex))
}

// TryGetOutputAvailableType is TryGetInputAvailableType for an output stream.
func (c *TransformClient) TryGetOutputAvailableType(outputStreamID, typeIndex uint32) (*MediaType, bool, error) {
	return tryAvailableType(c.GetOutputAvailableType(outputStreamID, typeIndex))
}

func tryAvailableType(mt *MediaType, err error) (*MediaType, bool, error) {
	if errors.Is(err, MF_E_NO_MORE_TYPES) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return mt, true, nil
}

// InputCurrentType returns the type set on an input stream, or nil when none
// has been set.
func (c *TransformClient) InputCurrentType(inputStreamID uint32) (*MediaType, error) {
	mt, err := c.GetInputCurrentType(inputStreamID)
	return optional(mt, err, MF_E_TRANSFORM_TYPE_NOT_SET)
}

// OutputCurrentType is InputCurrentType for an output stream.
func (c *TransformClient) OutputCurrentType(outputStreamID uint32) (*MediaType, error) {
	mt, err := c.GetOutputCurrentType(outputStreamID)
	return optional(mt, err, MF_E_TRANSFORM_TYPE_NOT_SET)
}

// Attributes returns the transform's attribute store, or nil when it has
// none.
func (c *TransformClient) Attributes() (*MediaAttributes, error) {
	a, err := c.GetAttributes()
	return optional(a, err, com.E_NOTIMPL)
}

// InputStreamAttributes returns the attributes of an input stream, or nil
// when the transform does not support them.
func (c *TransformClient) InputStreamAttributes(inputStreamID uint32) (*MediaAttributes, error) {
	a, err := c.GetInputStreamAttributes(inputStreamID)
	return optional(a, err, com.E_NOTIMPL)
}

// OutputStreamAttributes is InputStreamAttributes for an output stream.
func (c *TransformClient) OutputStreamAttributes(outputStreamID uint32) (*MediaAttributes, error) {
	a, err := c.GetOutputStreamAttributes(outputStreamID)
	return optional(a, err, com.E_NOTIMPL)
}

// optional maps the status meaning "absent" to a nil value.
func optional[V any](v *V, err error, absent com.Result) (*V, error) {
	if errors.Is(err, absent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// TestInputType asks whether the input stream would accept mt without
// changing it. The answer is the raw status: S_OK when accepted,
// MF_E_INVALIDMEDIATYPE when rejected.
func (c *TransformClient) TestInputType(inputStreamID uint32, mt *MediaType) com.Result {
	return c.setInputType(inputStreamID, mt, SetTypeTestOnly)
}

// TestOutputType is TestInputType for an output stream.
func (c *TransformClient) TestOutputType(outputStreamID uint32, mt *MediaType) com.Result {
	return c.setOutputType(outputStreamID, mt, SetTypeTestOnly)
}

// TryProcessInput delivers a sample. It reports false when the transform
// cannot take more input until output has been drained.
func (c *TransformClient) TryProcessInput(inputStreamID uint32, sample *Sample) (bool, error) {
	err := c.ProcessInput(inputStreamID, sample, 0)
	if errors.Is(err, MF_E_NOTACCEPTING) {
		return false, nil
	}
	return err == nil, err
}

// TryProcessOutput asks for output. It reports false when the transform
// needs more input first.
func (c *TransformClient) TryProcessOutput(flags ProcessOutputFlags, buffers []OutputDataBuffer) (bool, ProcessOutputStatus, error) {
	status, err := c.ProcessOutput(flags, buffers)
	if errors.Is(err, MF_E_TRANSFORM_NEED_MORE_INPUT) {
		return false, status, nil
	}
	return err == nil, status, err
}

// StreamCount returns the number of input and output streams.
func (c *TransformClient) StreamCount() (inputs, outputs uint32, err error) {
	return c.GetStreamCount()
}

func (c *TransformClient) StreamLimits() (StreamLimits, error) { return c.GetStreamLimits() }

func (c *TransformClient) InputStreamInfo(inputStreamID uint32) (InputStreamInfo, error) {
	return c.GetInputStreamInfo(inputStreamID)
}

func (c *TransformClient) OutputStreamInfo(outputStreamID uint32) (OutputStreamInfo, error) {
	return c.GetOutputStreamInfo(outputStreamID)
}

func (c *TransformClient) RemoveInputStream(streamID uint32) error {
	return c.DeleteInputStream(streamID)
}

func (c *TransformClient) AddStreams(streamIDs ...uint32) error {
	return c.AddInputStreams(streamIDs)
}

// SetInputMediaType sets, or with a nil mt clears, the input type.
func (c *TransformClient) SetInputMediaType(inputStreamID uint32, mt *MediaType) error {
	return c.SetInputType(inputStreamID, mt, SetTypeNone)
}

// SetOutputMediaType sets, or with a nil mt clears, the output type.
func (c *TransformClient) SetOutputMediaType(outputStreamID uint32, mt *MediaType) error {
	return c.SetOutputType(outputStreamID, mt, SetTypeNone)
}

func (c *TransformClient) InputStatus(inputStreamID uint32) (InputStatusFlags, error) {
	return c.GetInputStatus(inputStreamID)
}

func (c *TransformClient) OutputStatus() (OutputStatusFlags, error) { return c.GetOutputStatus() }

func (c *TransformClient) SetBounds(lowerBound, upperBound int64) error {
	return c.SetOutputBounds(lowerBound, upperBound)
}

func (c *TransformClient) SendEvent(inputStreamID uint32, event *MediaEvent) error {
	return c.ProcessEvent(inputStreamID, event)
}

func (c *TransformClient) SendMessage(message TransformMessage) error {
	return c.ProcessMessage(message)
}

// Flush discards all buffered input and output.
func (c *TransformClient) Flush() error {
	return c.SendMessage(NewMessage(MessageCommandFlush, 0))
}

// Drain asks the transform to produce all remaining output.
func (c *TransformClient) Drain() error {
	return c.SendMessage(NewMessage(MessageCommandDrain, 0))
}

func (c *TransformClient) BeginStreaming() error {
	return c.SendMessage(NewMessage(MessageNotifyBeginStreaming, 0))
}

func (c *TransformClient) EndStreaming() error {
	return c.SendMessage(NewMessage(MessageNotifyEndStreaming, 0))
}

func (c *TransformClient) EndOfStream(inputStreamID uint32) error {
	return c.SendMessage(&NotifyEndOfStreamMessage{StreamID: inputStreamID})
}
