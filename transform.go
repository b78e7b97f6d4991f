package mf

// Transform is the IMFTransform contract. Implementations are exposed to
// native code with WrapTransform or TransformPointer; TransformClient also
// implements it by forwarding to a native object.
//
// Methods return nil for S_OK. To report a specific status, return a
// com.Result (or an error wrapping one): MF_E_NO_MORE_TYPES from an available
// type query, MF_E_NOTACCEPTING from ProcessInput, com.E_NOTIMPL for optional
// methods, and so on. Any other error reaches the caller as E_FAIL and a panic
// as E_UNEXPECTED.
//
// Handle arguments (media types, samples, events) are borrowed for the
// duration of the call; AddRef them to keep them. Returned objects are
// AddRef'd for the caller, so the implementation keeps its own reference.
//
// Calls may arrive concurrently from several native threads. Implementations
// do their own locking.
//
// The method order below is the vtable order and must not change.
type Transform interface {
	GetStreamLimits() (StreamLimits, error)
	GetStreamCount() (inputs, outputs uint32, err error)
	// GetStreamIDs fills the caller's arrays. Both slices have exactly the
	// capacity the caller declared; return MF_E_BUFFERTOOSMALL when they are
	// too short and com.E_NOTIMPL when stream IDs are consecutive from zero.
	GetStreamIDs(inputIDs, outputIDs []uint32) error
	GetInputStreamInfo(inputStreamID uint32) (InputStreamInfo, error)
	GetOutputStreamInfo(outputStreamID uint32) (OutputStreamInfo, error)
	GetAttributes() (*MediaAttributes, error)
	GetInputStreamAttributes(inputStreamID uint32) (*MediaAttributes, error)
	GetOutputStreamAttributes(outputStreamID uint32) (*MediaAttributes, error)
	DeleteInputStream(streamID uint32) error
	AddInputStreams(streamIDs []uint32) error
	GetInputAvailableType(inputStreamID, typeIndex uint32) (*MediaType, error)
	GetOutputAvailableType(outputStreamID, typeIndex uint32) (*MediaType, error)
	SetInputType(inputStreamID uint32, mediaType *MediaType, flags SetTypeFlags) error
	SetOutputType(outputStreamID uint32, mediaType *MediaType, flags SetTypeFlags) error
	GetInputCurrentType(inputStreamID uint32) (*MediaType, error)
	GetOutputCurrentType(outputStreamID uint32) (*MediaType, error)
	GetInputStatus(inputStreamID uint32) (InputStatusFlags, error)
	GetOutputStatus() (OutputStatusFlags, error)
	SetOutputBounds(lowerBound, upperBound int64) error
	ProcessEvent(inputStreamID uint32, event *MediaEvent) error
	ProcessMessage(message TransformMessage) error
	ProcessInput(inputStreamID uint32, sample *Sample, flags uint32) error
	// ProcessOutput fills buffers, which mirrors the caller's
	// MFT_OUTPUT_DATA_BUFFER array. Sample, Status and Events written into
	// the elements are copied back to the caller.
	ProcessOutput(flags ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error)
}

// Vtable slots of IMFTransform.
const (
	slotGetStreamLimits = iota + 3
	slotGetStreamCount
	slotGetStreamIDs
	slotGetInputStreamInfo
	slotGetOutputStreamInfo
	slotGetAttributes
	slotGetInputStreamAttributes
	slotGetOutputStreamAttributes
	slotDeleteInputStream
	slotAddInputStreams
	slotGetInputAvailableType
	slotGetOutputAvailableType
	slotSetInputType
	slotSetOutputType
	slotGetInputCurrentType
	slotGetOutputCurrentType
	slotGetInputStatus
	slotGetOutputStatus
	slotSetOutputBounds
	slotProcessEvent
	slotProcessMessage
	slotProcessInput
	slotProcessOutput

	transformMethods = slotProcessOutput - 3 + 1
)

// StreamLimits is the result of GetStreamLimits.
type StreamLimits struct {
	InputMinimum  uint32
	InputMaximum  uint32
	OutputMinimum uint32
	OutputMaximum uint32
}

// MFT_STREAMS_UNLIMITED marks a stream count without an upper bound.
const MFT_STREAMS_UNLIMITED = 0xFFFFFFFF

// InputStreamInfo mirrors MFT_INPUT_STREAM_INFO.
type InputStreamInfo struct {
	MaxLatency   int64 // 100-ns units
	Flags        InputStreamFlags
	Size         uint32
	MaxLookahead uint32
	Alignment    uint32
}

// OutputStreamInfo mirrors MFT_OUTPUT_STREAM_INFO.
type OutputStreamInfo struct {
	Flags     OutputStreamFlags
	Size      uint32
	Alignment uint32
}

// InputStreamFlags are the _MFT_INPUT_STREAM_INFO_FLAGS bits.
type InputStreamFlags uint32

const (
	InputStreamWholeSamples          InputStreamFlags = 0x1
	InputStreamSingleSamplePerBuffer InputStreamFlags = 0x2
	InputStreamFixedSampleSize       InputStreamFlags = 0x4
	InputStreamHoldsBuffers          InputStreamFlags = 0x8
	InputStreamDoesNotAddRef         InputStreamFlags = 0x100
	InputStreamRemovable             InputStreamFlags = 0x200
	InputStreamOptional              InputStreamFlags = 0x400
	InputStreamProcessesInPlace      InputStreamFlags = 0x800
)

// OutputStreamFlags are the _MFT_OUTPUT_STREAM_INFO_FLAGS bits.
type OutputStreamFlags uint32

const (
	OutputStreamWholeSamples          OutputStreamFlags = 0x1
	OutputStreamSingleSamplePerBuffer OutputStreamFlags = 0x2
	OutputStreamFixedSampleSize       OutputStreamFlags = 0x4
	OutputStreamDiscardable           OutputStreamFlags = 0x8
	OutputStreamOptional              OutputStreamFlags = 0x10
	OutputStreamProvidesSamples       OutputStreamFlags = 0x100
	OutputStreamCanProvideSamples     OutputStreamFlags = 0x200
	OutputStreamLazyRead              OutputStreamFlags = 0x400
	OutputStreamRemovable             OutputStreamFlags = 0x800
)

// SetTypeFlags are the _MFT_SET_TYPE_FLAGS bits.
type SetTypeFlags uint32

const (
	SetTypeNone     SetTypeFlags = 0
	SetTypeTestOnly SetTypeFlags = 0x1
)

// InputStatusFlags are the _MFT_INPUT_STATUS_FLAGS bits.
type InputStatusFlags uint32

const InputStatusAcceptData InputStatusFlags = 0x1

// OutputStatusFlags are the _MFT_OUTPUT_STATUS_FLAGS bits.
type OutputStatusFlags uint32

const OutputStatusSampleReady OutputStatusFlags = 0x1

// ProcessOutputFlags are the _MFT_PROCESS_OUTPUT_FLAGS bits.
type ProcessOutputFlags uint32

const (
	ProcessOutputDiscardWhenNoBuffer  ProcessOutputFlags = 0x1
	ProcessOutputRegenerateLastOutput ProcessOutputFlags = 0x2
)

// ProcessOutputStatus are the _MFT_PROCESS_OUTPUT_STATUS bits.
type ProcessOutputStatus uint32

const ProcessOutputNewStreams ProcessOutputStatus = 0x100

// OutputDataBufferStatus are the _MFT_OUTPUT_DATA_BUFFER_FLAGS bits.
type OutputDataBufferStatus uint32

const (
	OutputDataBufferIncomplete   OutputDataBufferStatus = 0x1000000
	OutputDataBufferFormatChange OutputDataBufferStatus = 0x100
	OutputDataBufferStreamEnd    OutputDataBufferStatus = 0x200
	OutputDataBufferNoSample     OutputDataBufferStatus = 0x300
)

// OutputDataBuffer is one element of the ProcessOutput array.
//
// On the way in, Sample is the caller's sample (borrowed) or nil when the
// transform provides samples. An implementation may replace Sample or Events;
// the reference the replacement holds passes to the caller.
type OutputDataBuffer struct {
	StreamID uint32
	Sample   *Sample
	Status   OutputDataBufferStatus
	Events   *Collection
}

// outputDataBufferABI is MFT_OUTPUT_DATA_BUFFER as laid out in memory.
type outputDataBufferABI struct {
	StreamID uint32
	Sample   uintptr
	Status   uint32
	Events   uintptr
}
