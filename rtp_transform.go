package mf

import (
	"fmt"
	"sync"

	"github.com/thesyncim/mf/com"
)

// rtpTransform holds what the RTP transforms share: one input and one output
// stream numbered 0, a single codec on both sides, and the negotiated types.
type rtpTransform struct {
	codec      Codec
	attributes *MediaAttributes
	available  *MediaType
	// reset runs with mu held whenever the input type changes.
	reset func()

	mu         sync.Mutex
	inputType  *MediaType
	outputType *MediaType
}

func (t *rtpTransform) setup(c Codec, available *MediaType, reset func()) {
	t.codec = c
	t.attributes = NewMediaAttributes()
	t.available = available
	t.reset = reset
}

func checkStream(id uint32) error {
	if id != 0 {
		return MF_E_INVALIDSTREAMNUMBER
	}
	return nil
}

func (t *rtpTransform) GetStreamLimits() (StreamLimits, error) {
	return StreamLimits{InputMinimum: 1, InputMaximum: 1, OutputMinimum: 1, OutputMaximum: 1}, nil
}

func (t *rtpTransform) GetStreamCount() (uint32, uint32, error) {
	return 1, 1, nil
}

// GetStreamIDs is not implemented: the single streams are numbered 0.
func (t *rtpTransform) GetStreamIDs(_, _ []uint32) error {
	return com.E_NOTIMPL
}

func (t *rtpTransform) GetInputStreamInfo(id uint32) (InputStreamInfo, error) {
	if err := checkStream(id); err != nil {
		return InputStreamInfo{}, err
	}
	return InputStreamInfo{Flags: InputStreamWholeSamples | InputStreamSingleSamplePerBuffer}, nil
}

func (t *rtpTransform) GetOutputStreamInfo(id uint32) (OutputStreamInfo, error) {
	if err := checkStream(id); err != nil {
		return OutputStreamInfo{}, err
	}
	return OutputStreamInfo{
		Flags: OutputStreamWholeSamples | OutputStreamSingleSamplePerBuffer | OutputStreamProvidesSamples,
	}, nil
}

func (t *rtpTransform) GetAttributes() (*MediaAttributes, error) {
	return t.attributes, nil
}

func (t *rtpTransform) GetInputStreamAttributes(uint32) (*MediaAttributes, error) {
	return nil, com.E_NOTIMPL
}

func (t *rtpTransform) GetOutputStreamAttributes(uint32) (*MediaAttributes, error) {
	return nil, com.E_NOTIMPL
}

func (t *rtpTransform) DeleteInputStream(uint32) error { return com.E_NOTIMPL }
func (t *rtpTransform) AddInputStreams([]uint32) error { return com.E_NOTIMPL }

func (t *rtpTransform) GetInputAvailableType(id, index uint32) (*MediaType, error) {
	if err := checkStream(id); err != nil {
		return nil, err
	}
	if index > 0 {
		return nil, MF_E_NO_MORE_TYPES
	}
	return t.available, nil
}

func (t *rtpTransform) GetOutputAvailableType(id, index uint32) (*MediaType, error) {
	if err := checkStream(id); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inputType == nil {
		return nil, MF_E_TRANSFORM_TYPE_NOT_SET
	}
	if index > 0 {
		return nil, MF_E_NO_MORE_TYPES
	}
	return t.available, nil
}

// acceptType checks that mt carries the configured codec.
func (t *rtpTransform) acceptType(mt *MediaType) error {
	sub, err := mt.Subtype()
	if err != nil {
		return fmt.Errorf("%w: %w", MF_E_INVALIDMEDIATYPE, err)
	}
	if sub != t.codec.Subtype() {
		return fmt.Errorf("subtype %s, want %s: %w", subtypeName(sub), t.codec, MF_E_INVALIDMEDIATYPE)
	}
	return nil
}

// replaceType stores mt in *slot, keeping a reference to it.
func replaceType(slot **MediaType, mt *MediaType) {
	if *slot != nil {
		(*slot).Release()
		*slot = nil
	}
	if mt != nil {
		mt.AddRef()
		*slot = AttachMediaType(mt.NativePointer())
	}
}

func (t *rtpTransform) SetInputType(id uint32, mt *MediaType, flags SetTypeFlags) error {
	if err := checkStream(id); err != nil {
		return err
	}
	if mt != nil {
		if err := t.acceptType(mt); err != nil {
			return err
		}
	}
	if flags&SetTypeTestOnly != 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	replaceType(&t.inputType, mt)
	if mt == nil {
		replaceType(&t.outputType, nil)
	}
	t.reset()
	return nil
}

func (t *rtpTransform) SetOutputType(id uint32, mt *MediaType, flags SetTypeFlags) error {
	if err := checkStream(id); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if mt != nil {
		if t.inputType == nil {
			return MF_E_TRANSFORM_TYPE_NOT_SET
		}
		if err := t.acceptType(mt); err != nil {
			return err
		}
	}
	if flags&SetTypeTestOnly != 0 {
		return nil
	}
	replaceType(&t.outputType, mt)
	return nil
}

func (t *rtpTransform) GetInputCurrentType(id uint32) (*MediaType, error) {
	if err := checkStream(id); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inputType == nil {
		return nil, MF_E_TRANSFORM_TYPE_NOT_SET
	}
	return t.inputType, nil
}

func (t *rtpTransform) GetOutputCurrentType(id uint32) (*MediaType, error) {
	if err := checkStream(id); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.outputType == nil {
		return nil, MF_E_TRANSFORM_TYPE_NOT_SET
	}
	return t.outputType, nil
}

func (t *rtpTransform) SetOutputBounds(int64, int64) error { return com.E_NOTIMPL }

func (t *rtpTransform) ProcessEvent(uint32, *MediaEvent) error { return com.E_NOTIMPL }

// typesSet reports whether both streams have a type.
func (t *rtpTransform) typesSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputType != nil && t.outputType != nil
}

// release drops the types and attributes. Callers hold mu.
func (t *rtpTransform) releaseLocked() {
	replaceType(&t.inputType, nil)
	replaceType(&t.outputType, nil)
	t.available.Release()
	t.attributes.Release()
	t.reset()
}

// fillSample writes data into a caller-provided sample.
func fillSample(s *Sample, data []byte, when int64) error {
	b, err := s.ContiguousBuffer()
	if err != nil {
		return err
	}
	defer b.Release()
	if err := b.SetBytes(data); err != nil {
		return err
	}
	return s.SetSampleTime(when)
}

// outputSample returns the sample to write into: the caller's, filled with
// data, or a new one the caller will own.
func outputSample(out *OutputDataBuffer, data []byte, when int64) error {
	if out.Sample == nil {
		out.Sample = NewMemorySampleFrom(data, when, 0)
		return nil
	}
	return fillSample(out.Sample, data, when)
}
