//go:build cgo

package hotpath

// Built with cgo: the native backend calls the system BLAS (Accelerate on
// macOS, OpenBLAS/reference BLAS on Linux) through netlib bindings. The
// foreign-call setup cost is only worth paying for large vectors, which is
// why the med threshold gates this backend.

import (
	"gonum.org/v1/netlib/blas/netlib"
)

type nativeKernel struct {
	impl netlib.Implementation
}

func newNativeKernel() Kernel { return &nativeKernel{} }

func (k *nativeKernel) Name() string     { return string(BackendNative) }
func (k *nativeKernel) Available() error { return nil }

func (k *nativeKernel) Compute(a, b []float64) (float64, error) {
	return k.impl.Ddot(len(a), a, 1, b, 1), nil
}
