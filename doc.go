// Package hotpath provides adaptive dispatch across interchangeable
// dot-product kernels.
//
// # Overview
//
// hotpath selects, per call, the kernel implementation expected to be fastest
// for a given input size: a reference kernel (gonum, always available), an
// accelerated pure-Go kernel (goroutine-parallel, unrolled), and an optional
// native BLAS kernel (cgo). Selection thresholds are calibrated empirically
// from live timing measurements and persisted across process restarts.
//
// # Architecture
//
// The package components:
//
//   - kernel*.go    - Kernel adapters (reference, accelerated, native)
//   - config.go     - Layered configuration resolution (defaults → file → env)
//   - cachefile.go  - Crash-safe persistence of calibrated thresholds
//   - health.go     - Backend probing and enable/disable flags
//   - dispatch.go   - The Dot decision function with fallback-on-failure
//   - autotune.go   - Timing-crossover measurement and threshold derivation
//
// # Quick Start
//
// Construct one engine per process and call Dot:
//
//	eng := hotpath.NewEngine(hotpath.DefaultEngineConfig())
//	eng.Warmup(nil, true)
//
//	a, b := hotpath.PrepareVectors(100_000)
//	v, err := eng.Dot(a, b)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("dot = %.6f served by %s\n", v, eng.LastOutcome().Served)
//
// # Dispatch
//
// With mode "auto", selection is purely by size against two thresholds:
//
//	size < small          → Reference
//	small <= size < med   → Accelerated
//	size >= med           → Native
//
// A broken or missing backend never surfaces to the caller: Native falls back
// to Accelerated, Accelerated to Reference. Only a Reference failure
// propagates, because no further fallback exists. The actually-served backend
// is observable through LastOutcome.
//
// Environment overrides (all optional):
//
//	HOTPATH_IMPL=auto|reference|accel|native
//	HOTPATH_SMALL=<int>    (default 8000)
//	HOTPATH_MED=<int>      (default 200000)
//	HOTPATH_CACHE=<dir>    (calibration file location)
//
// # Autotuning
//
// Autotune measures median latencies for each backend pair over a geometric
// size grid, finds the crossover sizes, and derives thresholds:
//
//	thr, err := eng.Autotune(true) // save=true persists to the cache file
//	fmt.Printf("small=%d med=%d\n", thr.Small, thr.Med)
//
// The saved record is a forward-compatible JSON object: unknown keys written
// by other tools are preserved. Writes are atomic (temp file + rename), so a
// concurrent reader never observes a torn record.
//
// # Testing
//
// Kernels are injectable, so failure paths are testable without breaking a
// real backend:
//
//	cfg := hotpath.DefaultEngineConfig()
//	cfg.Native = brokenKernel{}
//	eng := hotpath.NewEngine(cfg)
//	// Dot at any size now serves via Accelerated, silently.
//
// # Non-goals
//
// hotpath does not guarantee bit-identical floating-point results across
// kernels; reduction order differs by design. Results agree within a small
// relative tolerance.
package hotpath
