package com

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the package logger. It is a no-op logger unless SetLogger
// was called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	logger.CompareAndSwap(nil, zap.NewNop())
	return logger.Load()
}

// SetLogger replaces the package logger. It is safe to call while thunks are
// running.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Failure describes the last call that returned a failure HRESULT from a
// thunk. Native callers only see the status code; the Go side can inspect the
// record afterwards.
type Failure struct {
	Contract string
	Method   string
	Result   Result
	Err      error
	// Panic holds the recovered value when the implementation panicked.
	Panic any
}

var lastFailure atomic.Pointer[Failure]

// LastFailure returns the most recent thunk failure, or nil.
func LastFailure() *Failure {
	return lastFailure.Load()
}

// ClearLastFailure resets the diagnostic slot.
func ClearLastFailure() {
	lastFailure.Store(nil)
}

func recordFailure(f *Failure) {
	lastFailure.Store(f)
	if f.Panic != nil {
		Logger().Error("com: implementation panicked",
			zap.String("contract", f.Contract),
			zap.String("method", f.Method),
			zap.Stringer("result", f.Result),
			zap.Any("panic", f.Panic))
		return
	}
	Logger().Debug("com: call failed",
		zap.String("contract", f.Contract),
		zap.String("method", f.Method),
		zap.Stringer("result", f.Result),
		zap.Error(f.Err))
}
