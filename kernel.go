package hotpath

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Backend identifies one concrete kernel implementation. The three backends
// are ordered by expected cost profile: Reference has the cheapest setup and
// the worst throughput at scale, Native the highest setup cost and the best
// throughput at scale.
type Backend string

const (
	BackendReference   Backend = "reference"
	BackendAccelerated Backend = "accel"
	BackendNative      Backend = "native"
)

// Kernel is the adapter contract every backend satisfies. Compute is defined
// only for two equal-length vectors of finite values; the dispatcher rejects
// anything else before invocation.
//
// An adapter that cannot initialize (missing cgo, missing system library)
// must report that through Available rather than failing on every Compute.
type Kernel interface {
	Name() string

	// Available returns nil if the backend can serve calls, or the reason
	// it cannot.
	Available() error

	Compute(a, b []float64) (float64, error)
}

// referenceKernel is the always-available baseline, backed by gonum's
// vectorized Dot. It never falls back further: if this path is broken, the
// environment cannot compute anything at all.
type referenceKernel struct{}

func (referenceKernel) Name() string     { return string(BackendReference) }
func (referenceKernel) Available() error { return nil }

func (referenceKernel) Compute(a, b []float64) (float64, error) {
	return floats.Dot(a, b), nil
}

// PrepareVectors returns two random equal-length vectors of size n, suitable
// for probing, warmup, and autotune measurements.
func PrepareVectors(n int) (a, b []float64) {
	a = make([]float64, n)
	b = make([]float64, n)
	for i := range a {
		a[i] = rand.Float64()
		b[i] = rand.Float64()
	}
	return a, b
}
