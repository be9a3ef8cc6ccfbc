package hotpath

import (
	"fmt"
	"sort"
	"time"
)

// Thresholds is the autotuner's output: the calibrated dispatch thresholds.
type Thresholds struct {
	Small int `json:"small"`
	Med   int `json:"med"`
}

// TimingSample is one measured grid point. Samples exist only for the
// duration of threshold derivation; nothing retains them afterwards.
type TimingSample struct {
	Backend Backend
	Size    int
	Median  time.Duration
}

// AutotuneConfig controls the measurement procedure.
type AutotuneConfig struct {
	// Sizes is the ascending geometric measurement grid.
	Sizes []int

	// Repeats is the number of timings per grid point; the median is kept,
	// so a single outlier (GC pause, scheduler hiccup) cannot skew a point.
	Repeats int

	// MinSmall and MinMed floor the derived thresholds.
	MinSmall int
	MinMed   int

	// MaxSize bounds a single measurement, so a misconfigured grid cannot
	// consume unbounded memory and time.
	MaxSize int
}

// DefaultAutotuneConfig returns the standard grid: 2,000 to 256,000 elements,
// doubling each step.
func DefaultAutotuneConfig() AutotuneConfig {
	sizes := make([]int, 0, 8)
	for n := 2000; n <= 256000; n *= 2 {
		sizes = append(sizes, n)
	}
	return AutotuneConfig{
		Sizes:    sizes,
		Repeats:  5,
		MinSmall: 2000,
		MinMed:   50000,
		MaxSize:  1 << 21,
	}
}

// Autotune measures timing crossovers on this machine and derives dispatch
// thresholds. With save=true the result is merged into the durable record,
// where every subsequent configuration resolution observes it.
func (e *Engine) Autotune(save bool) (Thresholds, error) {
	return e.AutotuneWith(DefaultAutotuneConfig(), save)
}

// AutotuneWith runs the tuning procedure with an explicit configuration.
//
// The small crossover is the first grid size, scanning ascending, where the
// accelerated median beats the reference median; the threshold is half that
// size, floored at MinSmall. Halving biases toward the accelerated backend
// slightly before the measured crossover: its fixed overhead amortizes better
// just below the crossover than the reference kernel's scaling does.
//
// The medium crossover scans the grid descending and takes the first (so the
// largest) size where native beats accelerated, as-is, floored at MinMed. No
// margin here: the native backend's foreign-call setup is only worth paying
// once the data clearly justifies it. Without a usable native backend, med
// keeps its prior resolved value.
func (e *Engine) AutotuneWith(cfg AutotuneConfig, save bool) (Thresholds, error) {
	if len(cfg.Sizes) == 0 {
		return Thresholds{}, fmt.Errorf("autotune: empty size grid")
	}
	for _, n := range cfg.Sizes {
		if n <= 0 || n > cfg.MaxSize {
			return Thresholds{}, fmt.Errorf("autotune: size %d outside (0, %d]", n, cfg.MaxSize)
		}
	}

	// Pay JIT-like first-call costs (worker spin-up, dynamic linking) before
	// measuring, so the first grid point is not polluted.
	e.Warmup(nil, true)

	prior := e.Resolve()
	thr := Thresholds{Small: prior.Small, Med: prior.Med}

	// Small crossover: reference vs accelerated, ascending.
	crossover, found := 0, false
	for _, n := range cfg.Sizes {
		// Fresh vectors per grid point; reusing one buffer across points
		// would reward whichever backend ran second on a warm cache.
		a, b := PrepareVectors(n)

		ref, err := e.medianTime(e.reference, a, b, cfg.Repeats)
		if err != nil {
			return Thresholds{}, fmt.Errorf("%w: %v", ErrReferenceBackend, err)
		}
		accel, err := e.medianTime(e.accelerated, a, b, cfg.Repeats)
		if err != nil {
			e.log.Debug("accelerated failed during tuning", "n", n, "err", err)
			break
		}
		if accel < ref {
			crossover, found = n, true
			break
		}
	}
	thr.Small = smallThreshold(crossover, found, thr.Small, cfg.MinSmall)

	// Medium crossover: accelerated vs native, descending, only when native
	// is usable.
	if e.nativeUsable() {
		crossover, found = 0, false
		for i := len(cfg.Sizes) - 1; i >= 0; i-- {
			n := cfg.Sizes[i]
			a, b := PrepareVectors(n)

			accel, err := e.medianTime(e.accelerated, a, b, cfg.Repeats)
			if err != nil {
				break
			}
			native, err := e.medianTime(e.native, a, b, cfg.Repeats)
			if err != nil {
				e.log.Debug("native failed during tuning", "n", n, "err", err)
				break
			}
			if native < accel {
				crossover, found = n, true
				break
			}
		}
		thr.Med = medThreshold(crossover, found, thr.Med, cfg.MinMed)
	}

	e.log.Debug("autotune derived thresholds", "small", thr.Small, "med", thr.Med)

	if save {
		rec := e.store.Load()
		rec["small"] = thr.Small
		rec["med"] = thr.Med
		if err := e.store.Save(rec); err != nil {
			// Persistence degrades to in-memory-only operation; the
			// thresholds are still returned.
			e.log.Warn("could not save calibration", "err", err)
		}
	}
	return thr, nil
}

// smallThreshold applies the margin policy for the reference/accelerated
// boundary: half the crossover, floored. No crossover keeps the prior value.
func smallThreshold(crossover int, found bool, prior, floor int) int {
	if !found {
		return prior
	}
	if half := crossover / 2; half > floor {
		return half
	}
	return floor
}

// medThreshold applies the policy for the accelerated/native boundary: the
// crossover itself, floored. No crossover keeps the prior value.
func medThreshold(crossover int, found bool, prior, floor int) int {
	if !found {
		return prior
	}
	if crossover > floor {
		return crossover
	}
	return floor
}

func (e *Engine) nativeUsable() bool {
	if err := e.native.Available(); err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.nativeDisabled
}

// medianTime measures k.Compute repeatedly and returns the median duration.
// Median, not mean: one descheduled run must not move a grid point.
func (e *Engine) medianTime(k Kernel, a, b []float64, repeats int) (time.Duration, error) {
	if repeats < 1 {
		repeats = 1
	}
	durations := make([]time.Duration, repeats)
	for i := range durations {
		start := time.Now()
		if _, err := k.Compute(a, b); err != nil {
			return 0, err
		}
		durations[i] = time.Since(start)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	sample := TimingSample{Backend: Backend(k.Name()), Size: len(a), Median: durations[len(durations)/2]}
	e.log.Debug("timing sample", "backend", sample.Backend, "n", sample.Size, "median", sample.Median)
	return sample.Median, nil
}
