//go:build !cgo

package hotpath

// Built without cgo: no system BLAS. The adapter reports unavailability
// through the query operation instead of failing on every call, and the
// dispatcher routes large inputs to the accelerated backend.

import "errors"

var errNoCgo = errors.New("native backend unavailable: built without cgo")

type nativeKernel struct{}

func newNativeKernel() Kernel { return nativeKernel{} }

func (nativeKernel) Name() string     { return string(BackendNative) }
func (nativeKernel) Available() error { return errNoCgo }

func (nativeKernel) Compute(a, b []float64) (float64, error) {
	return 0, errNoCgo
}
