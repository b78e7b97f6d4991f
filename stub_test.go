package mf

import (
	"sync"

	"github.com/thesyncim/mf/com"
)

// stubTransform is a Transform whose methods answer E_NOTIMPL unless the
// matching field is set. It counts every call.
type stubTransform struct {
	mu     sync.Mutex
	calls  map[string]int
	closed bool

	streamLimits        func() (StreamLimits, error)
	streamCount         func() (uint32, uint32, error)
	streamIDs           func(in, out []uint32) error
	inputStreamInfo     func(id uint32) (InputStreamInfo, error)
	outputStreamInfo    func(id uint32) (OutputStreamInfo, error)
	attributes          func() (*MediaAttributes, error)
	inputStreamAttrs    func(id uint32) (*MediaAttributes, error)
	outputStreamAttrs   func(id uint32) (*MediaAttributes, error)
	deleteInputStream   func(id uint32) error
	addInputStreams     func(ids []uint32) error
	inputAvailableType  func(id, index uint32) (*MediaType, error)
	outputAvailableType func(id, index uint32) (*MediaType, error)
	setInputType        func(id uint32, mt *MediaType, flags SetTypeFlags) error
	setOutputType       func(id uint32, mt *MediaType, flags SetTypeFlags) error
	inputCurrentType    func(id uint32) (*MediaType, error)
	outputCurrentType   func(id uint32) (*MediaType, error)
	inputStatus         func(id uint32) (InputStatusFlags, error)
	outputStatus        func() (OutputStatusFlags, error)
	outputBounds        func(lower, upper int64) error
	processEvent        func(id uint32, e *MediaEvent) error
	processMessage      func(m TransformMessage) error
	processInput        func(id uint32, s *Sample, flags uint32) error
	processOutput       func(flags ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error)
}

func (s *stubTransform) count(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
}

func (s *stubTransform) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *stubTransform) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubTransform) GetStreamLimits() (StreamLimits, error) {
	s.count("GetStreamLimits")
	if s.streamLimits == nil {
		return StreamLimits{}, com.E_NOTIMPL
	}
	return s.streamLimits()
}

func (s *stubTransform) GetStreamCount() (uint32, uint32, error) {
	s.count("GetStreamCount")
	if s.streamCount == nil {
		return 0, 0, com.E_NOTIMPL
	}
	return s.streamCount()
}

func (s *stubTransform) GetStreamIDs(in, out []uint32) error {
	s.count("GetStreamIDs")
	if s.streamIDs == nil {
		return com.E_NOTIMPL
	}
	return s.streamIDs(in, out)
}

func (s *stubTransform) GetInputStreamInfo(id uint32) (InputStreamInfo, error) {
	s.count("GetInputStreamInfo")
	if s.inputStreamInfo == nil {
		return InputStreamInfo{}, com.E_NOTIMPL
	}
	return s.inputStreamInfo(id)
}

func (s *stubTransform) GetOutputStreamInfo(id uint32) (OutputStreamInfo, error) {
	s.count("GetOutputStreamInfo")
	if s.outputStreamInfo == nil {
		return OutputStreamInfo{}, com.E_NOTIMPL
	}
	return s.outputStreamInfo(id)
}

func (s *stubTransform) GetAttributes() (*MediaAttributes, error) {
	s.count("GetAttributes")
	if s.attributes == nil {
		return nil, com.E_NOTIMPL
	}
	return s.attributes()
}

func (s *stubTransform) GetInputStreamAttributes(id uint32) (*MediaAttributes, error) {
	s.count("GetInputStreamAttributes")
	if s.inputStreamAttrs == nil {
		return nil, com.E_NOTIMPL
	}
	return s.inputStreamAttrs(id)
}

func (s *stubTransform) GetOutputStreamAttributes(id uint32) (*MediaAttributes, error) {
	s.count("GetOutputStreamAttributes")
	if s.outputStreamAttrs == nil {
		return nil, com.E_NOTIMPL
	}
	return s.outputStreamAttrs(id)
}

func (s *stubTransform) DeleteInputStream(id uint32) error {
	s.count("DeleteInputStream")
	if s.deleteInputStream == nil {
		return com.E_NOTIMPL
	}
	return s.deleteInputStream(id)
}

func (s *stubTransform) AddInputStreams(ids []uint32) error {
	s.count("AddInputStreams")
	if s.addInputStreams == nil {
		return com.E_NOTIMPL
	}
	return s.addInputStreams(ids)
}

func (s *stubTransform) GetInputAvailableType(id, index uint32) (*MediaType, error) {
	s.count("GetInputAvailableType")
	if s.inputAvailableType == nil {
		return nil, com.E_NOTIMPL
	}
	return s.inputAvailableType(id, index)
}

func (s *stubTransform) GetOutputAvailableType(id, index uint32) (*MediaType, error) {
	s.count("GetOutputAvailableType")
	if s.outputAvailableType == nil {
		return nil, com.E_NOTIMPL
	}
	return s.outputAvailableType(id, index)
}

func (s *stubTransform) SetInputType(id uint32, mt *MediaType, flags SetTypeFlags) error {
	s.count("SetInputType")
	if s.setInputType == nil {
		return com.E_NOTIMPL
	}
	return s.setInputType(id, mt, flags)
}

func (s *stubTransform) SetOutputType(id uint32, mt *MediaType, flags SetTypeFlags) error {
	s.count("SetOutputType")
	if s.setOutputType == nil {
		return com.E_NOTIMPL
	}
	return s.setOutputType(id, mt, flags)
}

func (s *stubTransform) GetInputCurrentType(id uint32) (*MediaType, error) {
	s.count("GetInputCurrentType")
	if s.inputCurrentType == nil {
		return nil, com.E_NOTIMPL
	}
	return s.inputCurrentType(id)
}

func (s *stubTransform) GetOutputCurrentType(id uint32) (*MediaType, error) {
	s.count("GetOutputCurrentType")
	if s.outputCurrentType == nil {
		return nil, com.E_NOTIMPL
	}
	return s.outputCurrentType(id)
}

func (s *stubTransform) GetInputStatus(id uint32) (InputStatusFlags, error) {
	s.count("GetInputStatus")
	if s.inputStatus == nil {
		return 0, com.E_NOTIMPL
	}
	return s.inputStatus(id)
}

func (s *stubTransform) GetOutputStatus() (OutputStatusFlags, error) {
	s.count("GetOutputStatus")
	if s.outputStatus == nil {
		return 0, com.E_NOTIMPL
	}
	return s.outputStatus()
}

func (s *stubTransform) SetOutputBounds(lower, upper int64) error {
	s.count("SetOutputBounds")
	if s.outputBounds == nil {
		return com.E_NOTIMPL
	}
	return s.outputBounds(lower, upper)
}

func (s *stubTransform) ProcessEvent(id uint32, e *MediaEvent) error {
	s.count("ProcessEvent")
	if s.processEvent == nil {
		return com.E_NOTIMPL
	}
	return s.processEvent(id, e)
}

func (s *stubTransform) ProcessMessage(m TransformMessage) error {
	s.count("ProcessMessage")
	if s.processMessage == nil {
		return com.E_NOTIMPL
	}
	return s.processMessage(m)
}

func (s *stubTransform) ProcessInput(id uint32, sample *Sample, flags uint32) error {
	s.count("ProcessInput")
	if s.processInput == nil {
		return com.E_NOTIMPL
	}
	return s.processInput(id, sample, flags)
}

func (s *stubTransform) ProcessOutput(flags ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error) {
	s.count("ProcessOutput")
	if s.processOutput == nil {
		return 0, com.E_NOTIMPL
	}
	return s.processOutput(flags, buffers)
}

// refCount returns the current reference count of a shadow.
func refCount(h com.Handle) uint32 {
	n, err := com.AddRef(h)
	if err != nil {
		return 0
	}
	_, _ = com.Release(h)
	return n - 1
}
