package hotpath

import (
	"math"
	"testing"
)

func TestDotUnrolled_MatchesNaive(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 31, 1000, 1023} {
		a, b := PrepareVectors(n)
		want := naiveDot(a, b)

		if got := dotUnrolled4(a, b); math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Errorf("dotUnrolled4(n=%d) = %v, want %v", n, got, want)
		}
		if got := dotUnrolled8(a, b); math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Errorf("dotUnrolled8(n=%d) = %v, want %v", n, got, want)
		}
	}
}

// TestAccelerated_ParallelPath forces the goroutine fan-out and checks the
// result still agrees with the plain sum.
func TestAccelerated_ParallelPath(t *testing.T) {
	k := newAcceleratedKernel()
	n := 4 * k.parallelCutoff
	a, b := PrepareVectors(n)

	got, err := k.Compute(a, b)
	if err != nil {
		t.Fatal(err)
	}
	relClose(t, got, naiveDot(a, b), 1e-9)
}

func TestAccelerated_SerialPath(t *testing.T) {
	k := newAcceleratedKernel()
	a, b := PrepareVectors(k.parallelCutoff / 2)

	got, err := k.Compute(a, b)
	if err != nil {
		t.Fatal(err)
	}
	relClose(t, got, naiveDot(a, b), 1e-9)
}

func TestReferenceKernel(t *testing.T) {
	k := referenceKernel{}
	if k.Available() != nil {
		t.Fatal("reference must always be available")
	}

	a, b := PrepareVectors(4096)
	got, err := k.Compute(a, b)
	if err != nil {
		t.Fatal(err)
	}
	relClose(t, got, naiveDot(a, b), 1e-9)
}

// TestNativeKernel_Consistent: whichever way the module was built, the
// adapter's availability report and its behavior must agree.
func TestNativeKernel_Consistent(t *testing.T) {
	k := newNativeKernel()

	a, b := PrepareVectors(1024)
	v, err := k.Compute(a, b)

	if availErr := k.Available(); availErr != nil {
		if err == nil {
			t.Fatal("unavailable adapter must not compute")
		}
		t.Logf("native unavailable in this build: %v", availErr)
		return
	}
	if err != nil {
		t.Fatalf("available adapter failed: %v", err)
	}
	relClose(t, v, naiveDot(a, b), 1e-9)
}

func TestPrepareVectors(t *testing.T) {
	a, b := PrepareVectors(512)
	if len(a) != 512 || len(b) != 512 {
		t.Fatalf("lengths %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] < 0 || a[i] >= 1 || b[i] < 0 || b[i] >= 1 {
			t.Fatalf("values outside [0,1) at %d: %v %v", i, a[i], b[i])
		}
	}
}
