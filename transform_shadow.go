package mf

import "github.com/thesyncim/mf/com"

var transformContract *com.Contract[Transform]

func init() {
	transformContract = com.NewContract[Transform]("IMFTransform", IID_IMFTransform, transformMethods, registerTransform)
}

// TransformPointer returns an IMFTransform pointer for t carrying one
// reference. A Go implementation gets a new shadow; a TransformClient hands
// out its native pointer.
func TransformPointer(t Transform) com.Handle {
	return com.ToCallbackPtr(t)
}

func dispatch(this uintptr, method string, fn func(t Transform) error) uintptr {
	return transformContract.Dispatch(this, method, fn)
}

func registerTransform(b *com.TableBuilder) {
	b.Add("GetStreamLimits", func(this, inMin, inMax, outMin, outMax uintptr) uintptr {
		return dispatch(this, "GetStreamLimits", func(t Transform) error {
			if err := com.RequirePointers(inMin, inMax, outMin, outMax); err != nil {
				return err
			}
			l, err := t.GetStreamLimits()
			if err != nil {
				return err
			}
			_ = com.Store(inMin, l.InputMinimum)
			_ = com.Store(inMax, l.InputMaximum)
			_ = com.Store(outMin, l.OutputMinimum)
			return com.Store(outMax, l.OutputMaximum)
		})
	})
	b.Add("GetStreamCount", func(this, pIn, pOut, _, _ uintptr) uintptr {
		return dispatch(this, "GetStreamCount", func(t Transform) error {
			if err := com.RequirePointers(pIn, pOut); err != nil {
				return err
			}
			in, out, err := t.GetStreamCount()
			if err != nil {
				return err
			}
			_ = com.Store(pIn, in)
			return com.Store(pOut, out)
		})
	})
	b.Add("GetStreamIDs", func(this, inSize, pIn, outSize, pOut uintptr) uintptr {
		return dispatch(this, "GetStreamIDs", func(t Transform) error {
			if (uint32(inSize) > 0 && pIn == 0) || (uint32(outSize) > 0 && pOut == 0) {
				return com.E_POINTER
			}
			return t.GetStreamIDs(com.View[uint32](pIn, uint32(inSize)), com.View[uint32](pOut, uint32(outSize)))
		})
	})
	b.Add("GetInputStreamInfo", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetInputStreamInfo", func(t Transform) error {
			return storeOut(out, func() (InputStreamInfo, error) { return t.GetInputStreamInfo(uint32(id)) })
		})
	})
	b.Add("GetOutputStreamInfo", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetOutputStreamInfo", func(t Transform) error {
			return storeOut(out, func() (OutputStreamInfo, error) { return t.GetOutputStreamInfo(uint32(id)) })
		})
	})
	b.Add("GetAttributes", func(this, out, _, _, _ uintptr) uintptr {
		return dispatch(this, "GetAttributes", func(t Transform) error {
			return storeObject(out, t.GetAttributes)
		})
	})
	b.Add("GetInputStreamAttributes", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetInputStreamAttributes", func(t Transform) error {
			return storeObject(out, func() (*MediaAttributes, error) { return t.GetInputStreamAttributes(uint32(id)) })
		})
	})
	b.Add("GetOutputStreamAttributes", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetOutputStreamAttributes", func(t Transform) error {
			return storeObject(out, func() (*MediaAttributes, error) { return t.GetOutputStreamAttributes(uint32(id)) })
		})
	})
	b.Add("DeleteInputStream", func(this, id, _, _, _ uintptr) uintptr {
		return dispatch(this, "DeleteInputStream", func(t Transform) error {
			return t.DeleteInputStream(uint32(id))
		})
	})
	b.Add("AddInputStreams", func(this, n, ids, _, _ uintptr) uintptr {
		return dispatch(this, "AddInputStreams", func(t Transform) error {
			if uint32(n) > 0 && ids == 0 {
				return com.E_POINTER
			}
			return t.AddInputStreams(append([]uint32(nil), com.View[uint32](ids, uint32(n))...))
		})
	})
	b.Add("GetInputAvailableType", func(this, id, index, out, _ uintptr) uintptr {
		return dispatch(this, "GetInputAvailableType", func(t Transform) error {
			return storeObject(out, func() (*MediaType, error) { return t.GetInputAvailableType(uint32(id), uint32(index)) })
		})
	})
	b.Add("GetOutputAvailableType", func(this, id, index, out, _ uintptr) uintptr {
		return dispatch(this, "GetOutputAvailableType", func(t Transform) error {
			return storeObject(out, func() (*MediaType, error) { return t.GetOutputAvailableType(uint32(id), uint32(index)) })
		})
	})
	b.Add("SetInputType", func(this, id, mt, flags, _ uintptr) uintptr {
		return dispatch(this, "SetInputType", func(t Transform) error {
			return t.SetInputType(uint32(id), AttachMediaType(com.Handle(mt)), SetTypeFlags(flags))
		})
	})
	b.Add("SetOutputType", func(this, id, mt, flags, _ uintptr) uintptr {
		return dispatch(this, "SetOutputType", func(t Transform) error {
			return t.SetOutputType(uint32(id), AttachMediaType(com.Handle(mt)), SetTypeFlags(flags))
		})
	})
	b.Add("GetInputCurrentType", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetInputCurrentType", func(t Transform) error {
			return storeObject(out, func() (*MediaType, error) { return t.GetInputCurrentType(uint32(id)) })
		})
	})
	b.Add("GetOutputCurrentType", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetOutputCurrentType", func(t Transform) error {
			return storeObject(out, func() (*MediaType, error) { return t.GetOutputCurrentType(uint32(id)) })
		})
	})
	b.Add("GetInputStatus", func(this, id, out, _, _ uintptr) uintptr {
		return dispatch(this, "GetInputStatus", func(t Transform) error {
			return storeOut(out, func() (InputStatusFlags, error) { return t.GetInputStatus(uint32(id)) })
		})
	})
	b.Add("GetOutputStatus", func(this, out, _, _, _ uintptr) uintptr {
		return dispatch(this, "GetOutputStatus", func(t Transform) error {
			return storeOut(out, t.GetOutputStatus)
		})
	})
	b.Add("SetOutputBounds", func(this, lower, upper, _, _ uintptr) uintptr {
		return dispatch(this, "SetOutputBounds", func(t Transform) error {
			return t.SetOutputBounds(int64(lower), int64(upper))
		})
	})
	b.Add("ProcessEvent", func(this, id, event, _, _ uintptr) uintptr {
		return dispatch(this, "ProcessEvent", func(t Transform) error {
			return t.ProcessEvent(uint32(id), AttachMediaEvent(com.Handle(event)))
		})
	})
	b.Add("ProcessMessage", func(this, typ, param, _, _ uintptr) uintptr {
		return dispatch(this, "ProcessMessage", func(t Transform) error {
			msg := NewTransformMessage(MessageType(uint32(typ)), param)
			defer ReleaseMessage(msg)
			return t.ProcessMessage(msg)
		})
	})
	b.Add("ProcessInput", func(this, id, sample, flags, _ uintptr) uintptr {
		return dispatch(this, "ProcessInput", func(t Transform) error {
			if err := com.RequirePointers(sample); err != nil {
				return err
			}
			return t.ProcessInput(uint32(id), AttachSample(com.Handle(sample)), uint32(flags))
		})
	})
	b.Add("ProcessOutput", func(this, flags, n, pBuffers, pStatus uintptr) uintptr {
		return dispatch(this, "ProcessOutput", func(t Transform) error {
			return processOutput(t, ProcessOutputFlags(flags), uint32(n), pBuffers, pStatus)
		})
	})
}

// processOutput marshals the MFT_OUTPUT_DATA_BUFFER array in and out of
// Transform.ProcessOutput. Fields are copied back even when the call fails,
// since the status flags describe the failure.
func processOutput(t Transform, flags ProcessOutputFlags, n uint32, pBuffers, pStatus uintptr) error {
	if n == 0 {
		return com.E_INVALIDARG
	}
	if err := com.RequirePointers(pBuffers, pStatus); err != nil {
		return err
	}
	raw := com.View[outputDataBufferABI](pBuffers, n)
	buffers := make([]OutputDataBuffer, len(raw))
	for i, r := range raw {
		buffers[i] = OutputDataBuffer{
			StreamID: r.StreamID,
			Sample:   AttachSample(com.Handle(r.Sample)),
			Status:   OutputDataBufferStatus(r.Status),
			Events:   AttachCollection(com.Handle(r.Events)),
		}
	}

	status, err := t.ProcessOutput(flags, buffers)

	for i := range raw {
		b := &buffers[i]
		raw[i].Status = uint32(b.Status)
		if uintptr(com.PointerOf(b.Sample)) != raw[i].Sample {
			raw[i].Sample = 0
			if b.Sample != nil {
				raw[i].Sample = uintptr(b.Sample.Detach())
			}
		}
		if uintptr(com.PointerOf(b.Events)) != raw[i].Events {
			raw[i].Events = 0
			if b.Events != nil {
				raw[i].Events = uintptr(b.Events.Detach())
			}
		}
	}
	_ = com.Store(pStatus, uint32(status))
	return err
}

// storeOut writes the value get returns to the required out-parameter out.
func storeOut[V any](out uintptr, get func() (V, error)) error {
	if err := com.RequirePointers(out); err != nil {
		return err
	}
	v, err := get()
	if err != nil {
		return err
	}
	return com.Store(out, v)
}

// storeObject writes the object get returns to the required interface
// out-parameter out. The pointer is cleared first so that failures leave
// null behind; the caller receives its own reference.
func storeObject[V any](out uintptr, get func() (V, error)) error {
	if err := com.RequirePointers(out); err != nil {
		return err
	}
	_ = com.Store[uintptr](out, 0)
	v, err := get()
	if err != nil {
		return err
	}
	return com.Store(out, uintptr(com.ToCallbackPtr(v)))
}
