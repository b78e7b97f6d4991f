package com

import (
	"errors"
	"fmt"
	"sync"
)

// Result is an HRESULT: a 32-bit status code whose top bit marks failure.
//
// Result implements error so implementations can return a specific status
// (for example a "no more types" sentinel) and have it reach the native caller
// unchanged.
type Result int32

// Generic status codes.
const (
	S_OK    Result = 0
	S_FALSE Result = 1

	E_NOTIMPL     Result = -0x7FFFBFFF // 0x80004001
	E_NOINTERFACE Result = -0x7FFFBFFE // 0x80004002
	E_POINTER     Result = -0x7FFFBFFD // 0x80004003
	E_ABORT       Result = -0x7FFFBFFC // 0x80004004
	E_FAIL        Result = -0x7FFFBFFB // 0x80004005
	E_UNEXPECTED  Result = -0x7FFF0001 // 0x8000FFFF
	E_OUTOFMEMORY Result = -0x7FF8FFF2 // 0x8007000E
	E_INVALIDARG  Result = -0x7FF8FFA9 // 0x80070057
)

// ResultFromCode converts an unsigned HRESULT literal (as printed in SDK
// headers) to a Result.
func ResultFromCode(code uint32) Result { return Result(int32(code)) }

// Code returns the unsigned HRESULT value.
func (r Result) Code() uint32 { return uint32(r) }

// Ret returns r in the form a Thunk hands it back to native code.
func (r Result) Ret() uintptr { return uintptr(uint32(r)) }

// ResultFromRet extracts the HRESULT from the low 32 bits of a raw return
// register.
func ResultFromRet(ret uintptr) Result { return Result(int32(uint32(ret))) }

// Succeeded reports whether r is a success code (top bit clear).
func (r Result) Succeeded() bool { return r >= 0 }

// Failed reports whether r is a failure code (top bit set).
func (r Result) Failed() bool { return r < 0 }

// Err returns nil for success codes and r for failures.
func (r Result) Err() error {
	if r.Succeeded() {
		return nil
	}
	return r
}

// Check returns nil for success codes and r wrapped with op otherwise.
func (r Result) Check(op string) error {
	if r.Succeeded() {
		return nil
	}
	return fmt.Errorf("%s: %w", op, r)
}

func (r Result) Error() string {
	return r.String()
}

func (r Result) String() string {
	resultNamesMu.RLock()
	name, ok := resultNames[r]
	resultNamesMu.RUnlock()
	if ok {
		return fmt.Sprintf("%s (0x%08X)", name, uint32(r))
	}
	return fmt.Sprintf("HRESULT 0x%08X", uint32(r))
}

var (
	resultNamesMu sync.RWMutex
	resultNames   = map[Result]string{
		S_OK:          "S_OK",
		S_FALSE:       "S_FALSE",
		E_NOTIMPL:     "E_NOTIMPL",
		E_NOINTERFACE: "E_NOINTERFACE",
		E_POINTER:     "E_POINTER",
		E_ABORT:       "E_ABORT",
		E_FAIL:        "E_FAIL",
		E_UNEXPECTED:  "E_UNEXPECTED",
		E_OUTOFMEMORY: "E_OUTOFMEMORY",
		E_INVALIDARG:  "E_INVALIDARG",
	}
)

// RegisterResultName attaches a symbolic name to a facility-specific code so
// that it prints readably in errors and logs.
func RegisterResultName(r Result, name string) {
	resultNamesMu.Lock()
	resultNames[r] = name
	resultNamesMu.Unlock()
}

// ResultFromError maps an error returned by an implementation to the HRESULT
// reported to the native caller. A Result anywhere in the chain is returned as
// is; any other error becomes E_FAIL.
func ResultFromError(err error) Result {
	if err == nil {
		return S_OK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return E_FAIL
}
