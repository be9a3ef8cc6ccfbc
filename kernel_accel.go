package hotpath

import (
	"runtime"
	"sync"

	"golang.org/x/sys/cpu"
)

// acceleratedKernel is a pure-Go kernel tuned for mid-size vectors: the inner
// loop keeps several independent accumulators so the compiler can schedule
// the multiplies without a loop-carried dependency, and above parallelCutoff
// the input is split across goroutines.
//
// Its per-call overhead (goroutine fan-out) is what makes it lose to the
// reference kernel below the small threshold.
type acceleratedKernel struct {
	workers        int
	parallelCutoff int
	serial         func(a, b []float64) float64
}

// newAcceleratedKernel sizes the worker pool to the machine and picks the
// serial inner kernel for the CPU's vector width.
func newAcceleratedKernel() *acceleratedKernel {
	return &acceleratedKernel{
		workers:        runtime.GOMAXPROCS(0),
		parallelCutoff: 32 * 1024,
		serial:         pickSerialDot(),
	}
}

// pickSerialDot selects the unroll fan-out by CPU feature. Wider vector units
// hide more in-flight multiplies, so widen the fan-out where the hardware can
// use it.
func pickSerialDot() func(a, b []float64) float64 {
	// 512-bit units keep eight independent chains busy; narrower units
	// saturate at four.
	if cpu.X86.HasAVX512F || cpu.ARM64.HasSVE {
		return dotUnrolled8
	}
	return dotUnrolled4
}

func (k *acceleratedKernel) Name() string     { return string(BackendAccelerated) }
func (k *acceleratedKernel) Available() error { return nil }

func (k *acceleratedKernel) Compute(a, b []float64) (float64, error) {
	n := len(a)
	if n < k.parallelCutoff || k.workers < 2 {
		return k.serial(a, b), nil
	}

	workers := k.workers
	if limit := n/k.parallelCutoff + 1; workers > limit {
		workers = limit
	}

	chunk := n / workers
	partial := make([]float64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if w == workers-1 {
			hi = n
		}

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			partial[w] = k.serial(a[lo:hi], b[lo:hi])
		}(w, lo, hi)
	}
	wg.Wait()

	var s float64
	for _, p := range partial {
		s += p
	}
	return s, nil
}

// dotUnrolled4 computes the dot product with a 4-way unrolled loop and
// independent accumulators. Reduction order differs from the reference
// kernel; exact bit equality is not a goal.
func dotUnrolled4(a, b []float64) float64 {
	var s0, s1, s2, s3 float64

	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// dotUnrolled8 is the 8-way variant for CPUs with wide vector units.
func dotUnrolled8(a, b []float64) float64 {
	var s0, s1, s2, s3, s4, s5, s6, s7 float64

	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
		s4 += a[i+4] * b[i+4]
		s5 += a[i+5] * b[i+5]
		s6 += a[i+6] * b[i+6]
		s7 += a[i+7] * b[i+7]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
}
