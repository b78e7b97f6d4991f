package com

import (
	"errors"
	"fmt"
)

// ErrNotShadow is returned when a handle is not a live shadow created by this
// process.
var ErrNotShadow = errors.New("com: handle is not a live shadow")

// ContractViolation is the panic value for programming errors at the ABI
// boundary: a table registered with the wrong number of slots, a handle that
// is not a shadow of the expected contract, a release past zero. These are
// never converted into HRESULTs.
type ContractViolation struct {
	Err error
}

func (v *ContractViolation) Error() string {
	return "com: contract violation: " + v.Err.Error()
}

func (v *ContractViolation) Unwrap() error { return v.Err }

func violationf(format string, args ...any) *ContractViolation {
	return &ContractViolation{Err: fmt.Errorf(format, args...)}
}
