package hotpath

import (
	"strconv"
	"strings"
)

// DispatchMode says how the backend is chosen.
type DispatchMode int

const (
	// ModeAuto selects by input size against the resolved thresholds.
	ModeAuto DispatchMode = iota

	// ModeForced selects DispatchConfig.Forced unconditionally. Used for
	// testing and manual override.
	ModeForced

	// ModeUnknown is an unrecognized override string. Dispatch degrades it
	// to the accelerated backend rather than erroring: availability beats
	// strictness for a configuration surface that drifts.
	ModeUnknown
)

// DispatchConfig is the fully resolved dispatch configuration. It is built
// fresh on every dispatch call by merging three sources and is never
// persisted as a whole; only the thresholds reach the durable record.
//
// Small <= Med is advisory and not enforced. If violated, the accelerated
// tier becomes unreachable by size alone (sizes below Small go to Reference,
// everything else straight to Native).
type DispatchConfig struct {
	Mode    DispatchMode
	Forced  Backend // valid when Mode == ModeForced
	RawMode string  // original override string, kept for logging
	Small   int
	Med     int
}

// Built-in defaults, the lowest-precedence layer.
const (
	DefaultSmall = 8000
	DefaultMed   = 200000
)

// Resolve merges defaults, the durable record, and environment overrides, in
// that precedence order. Only small/med may come from the durable record; the
// environment may additionally override the mode. Numeric overrides must
// parse as non-negative integers or they are ignored and the prior value
// retained.
//
// Resolution is pure apart from one read of durable storage and performs no
// writes. It runs on every dispatch call, so the latest persisted calibration
// and environment are always observed.
func (e *Engine) Resolve() DispatchConfig {
	cfg := DispatchConfig{Mode: ModeAuto, Small: DefaultSmall, Med: DefaultMed}

	rec := e.store.Load()
	if v, ok := rec.Int("small"); ok {
		cfg.Small = v
	}
	if v, ok := rec.Int("med"); ok {
		cfg.Med = v
	}

	if raw := e.env("HOTPATH_IMPL"); strings.TrimSpace(raw) != "" {
		cfg.Mode, cfg.Forced = parseMode(raw)
		cfg.RawMode = raw
	}
	if v, ok := envInt(e.env("HOTPATH_SMALL")); ok {
		cfg.Small = v
	}
	if v, ok := envInt(e.env("HOTPATH_MED")); ok {
		cfg.Med = v
	}
	return cfg
}

// parseMode converts the loosely-typed override into strict types at the
// boundary. Unrecognized values become ModeUnknown, not an error.
func parseMode(raw string) (DispatchMode, Backend) {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case "auto":
		return ModeAuto, ""
	case BackendReference:
		return ModeForced, BackendReference
	case BackendAccelerated:
		return ModeForced, BackendAccelerated
	case BackendNative:
		return ModeForced, BackendNative
	}
	return ModeUnknown, ""
}

func envInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
