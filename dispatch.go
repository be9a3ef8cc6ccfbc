package hotpath

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Validation errors. These surface to the caller immediately and no backend
// executes. Everything else in the failure taxonomy is absorbed into
// fallback, except ErrReferenceBackend.
var (
	// ErrShapeMismatch reports vectors of different lengths.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNonFinite reports a NaN or infinity in the input.
	ErrNonFinite = errors.New("non-finite input")

	// ErrReferenceBackend wraps a failure of the reference kernel, the one
	// backend with no further fallback. It indicates an environment that
	// cannot compute anything at all.
	ErrReferenceBackend = errors.New("reference backend failed")
)

// Outcome records how one dispatch call was served. Selected is what the
// resolved configuration asked for; Served is the backend that actually ran.
// When the two differ, Reason says why the fallback happened.
type Outcome struct {
	Selected Backend
	Served   Backend
	FellBack bool
	Reason   string
}

// EngineConfig configures an Engine. Zero fields take defaults, so
// NewEngine(DefaultEngineConfig()) is the common construction.
type EngineConfig struct {
	// CacheDir overrides the durable record location. Empty selects
	// HOTPATH_CACHE, else the per-user cache directory.
	CacheDir string

	// Env is the environment lookup used by configuration resolution.
	// Defaults to os.Getenv; tests inject a map-backed lookup.
	Env func(key string) string

	// Logger receives dispatch decisions at debug level and persistence
	// problems at warn level. Defaults to slog.Default().
	Logger *slog.Logger

	// Kernel overrides, for tests and embedders. Nil fields take the
	// built-in reference/accelerated/native adapters.
	Reference   Kernel
	Accelerated Kernel
	Native      Kernel
}

// DefaultEngineConfig returns the standard configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{}
}

// Engine is the adaptive dispatcher. Construct one per process and thread it
// through explicitly; there are no package-level singletons.
//
// The mutex guards only the health flags and the last outcome. It is never
// held across kernel execution, so concurrent Dot calls block each other only
// for the brief flag reads and writes.
type Engine struct {
	store *Store
	env   func(string) string
	log   *slog.Logger

	reference   Kernel
	accelerated Kernel
	native      Kernel

	mu sync.Mutex
	// Health state, optimistic at process start: accelerated assumed
	// available, native assumed available if the adapter loaded. Updated
	// only by HealthCheck or by dispatch failure observations.
	accelAvailable bool
	nativeDisabled bool
	accelProbeErr  string
	nativeProbeErr string
	lastOutcome    Outcome
}

// NewEngine constructs an engine from cfg, filling defaults for zero fields.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Env == nil {
		cfg.Env = os.Getenv
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Reference == nil {
		cfg.Reference = referenceKernel{}
	}
	if cfg.Accelerated == nil {
		cfg.Accelerated = newAcceleratedKernel()
	}
	if cfg.Native == nil {
		cfg.Native = newNativeKernel()
	}

	e := &Engine{
		store:       NewStore(cfg.CacheDir, cfg.Logger),
		env:         cfg.Env,
		log:         cfg.Logger,
		reference:   cfg.Reference,
		accelerated: cfg.Accelerated,
		native:      cfg.Native,

		accelAvailable: true,
	}
	if err := e.native.Available(); err != nil {
		e.nativeDisabled = true
		e.nativeProbeErr = err.Error()
	}
	if err := e.accelerated.Available(); err != nil {
		e.accelAvailable = false
		e.accelProbeErr = err.Error()
	}
	return e
}

// Dot computes the dot product of a and b, dispatching to the backend
// expected to be fastest for the input size. Backend breakage is absorbed by
// falling back along Native → Accelerated → Reference; only validation errors
// and a reference-kernel failure reach the caller.
func (e *Engine) Dot(a, b []float64) (float64, error) {
	if err := validate(a, b); err != nil {
		return 0, err
	}

	cfg := e.Resolve()
	selected, reason := e.selectBackend(cfg, len(a))

	out := Outcome{Selected: selected, Served: selected, Reason: reason, FellBack: reason != ""}
	v, err := e.execute(a, b, &out)

	e.mu.Lock()
	e.lastOutcome = out
	e.mu.Unlock()

	if err != nil {
		return 0, err
	}
	e.log.Debug("dot dispatched", "n", len(a), "selected", out.Selected, "served", out.Served, "reason", out.Reason)
	return v, nil
}

// validate rejects inputs the kernel contract does not cover: mismatched
// lengths and non-finite values. Distinct error per cause, no coercion, no
// truncation.
func validate(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: len(a)=%d len(b)=%d", ErrShapeMismatch, len(a), len(b))
	}
	for i := range a {
		if !isFinite(a[i]) {
			return fmt.Errorf("%w: a[%d]=%v", ErrNonFinite, i, a[i])
		}
		if !isFinite(b[i]) {
			return fmt.Errorf("%w: b[%d]=%v", ErrNonFinite, i, b[i])
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// selectBackend applies the resolved mode, or size thresholds under auto.
func (e *Engine) selectBackend(cfg DispatchConfig, n int) (Backend, string) {
	switch cfg.Mode {
	case ModeForced:
		return cfg.Forced, ""
	case ModeUnknown:
		return BackendAccelerated, fmt.Sprintf("unknown mode %q", cfg.RawMode)
	}

	switch {
	case n < cfg.Small:
		return BackendReference, ""
	case n < cfg.Med:
		return BackendAccelerated, ""
	default:
		return BackendNative, ""
	}
}

// execute runs the selected backend with the fallback chain. The outcome is
// updated in place so the caller records the backend that actually served.
func (e *Engine) execute(a, b []float64, out *Outcome) (float64, error) {
	if out.Served == BackendNative {
		e.mu.Lock()
		disabled := e.nativeDisabled
		e.mu.Unlock()

		if disabled {
			e.fellBack(out, BackendAccelerated, "native disabled")
		} else {
			v, err := e.native.Compute(a, b)
			if err == nil {
				return v, nil
			}
			// Any native execution failure disables it for the rest of
			// the process; a later successful probe re-enables it.
			e.mu.Lock()
			e.nativeDisabled = true
			e.nativeProbeErr = err.Error()
			e.mu.Unlock()
			e.fellBack(out, BackendAccelerated, err.Error())
		}
	}

	if out.Served == BackendAccelerated {
		e.mu.Lock()
		available := e.accelAvailable
		e.mu.Unlock()

		if !available {
			e.fellBack(out, BackendReference, "accelerated unavailable")
		} else {
			v, err := e.accelerated.Compute(a, b)
			if err == nil {
				return v, nil
			}
			e.fellBack(out, BackendReference, err.Error())
		}
	}

	v, err := e.reference.Compute(a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReferenceBackend, err)
	}
	return v, nil
}

func (e *Engine) fellBack(out *Outcome, to Backend, reason string) {
	e.log.Debug("backend fallback", "from", out.Served, "to", to, "reason", reason)
	out.Served = to
	out.FellBack = true
	if out.Reason == "" {
		out.Reason = reason
	} else {
		out.Reason += "; " + reason
	}
}

// LastOutcome returns how the most recent Dot call was served. The value is
// per logical call, not per size bucket.
func (e *Engine) LastOutcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOutcome
}

// Warmup pays each backend's one-time initialization cost (worker spin-up,
// dynamic linking) before real workload calls. Backends warm concurrently;
// failures are best-effort and only logged.
func (e *Engine) Warmup(sizes []int, useNative bool) {
	if len(sizes) == 0 {
		sizes = []int{8192, 200000}
	}

	var g errgroup.Group
	g.Go(func() error {
		a, b := PrepareVectors(sizes[0])
		_, err := e.reference.Compute(a, b)
		return err
	})
	g.Go(func() error {
		a, b := PrepareVectors(sizes[0])
		_, err := e.accelerated.Compute(a, b)
		return err
	})
	if useNative && e.native.Available() == nil {
		g.Go(func() error {
			a, b := PrepareVectors(sizes[len(sizes)-1])
			_, err := e.native.Compute(a, b)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Debug("warmup incomplete", "err", err)
	}
	e.log.Debug("warmup done", "sizes", sizes, "native", useNative)
}
