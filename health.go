package hotpath

// probeSize is the fixed representative input size for health probes. Small
// enough to be cheap, large enough to exercise the real kernel path.
const probeSize = 1024

// HealthReport is the result of one probe pass over all backends.
type HealthReport struct {
	Reference   bool
	Accelerated bool
	Native      bool

	// Errors maps backend name to the probe failure, for backends that
	// failed this pass.
	Errors map[string]string
}

// Health returns the current flags and last recorded probe errors without
// running a probe. Reference is reported available; only a probe can observe
// otherwise.
func (e *Engine) Health() HealthReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := HealthReport{
		Reference:   true,
		Accelerated: e.accelAvailable,
		Native:      !e.nativeDisabled,
		Errors:      map[string]string{},
	}
	if e.accelProbeErr != "" {
		report.Errors[string(BackendAccelerated)] = e.accelProbeErr
	}
	if e.nativeProbeErr != "" {
		report.Errors[string(BackendNative)] = e.nativeProbeErr
	}
	return report
}

// HealthCheck executes one representative call through each kernel adapter
// and updates the enable/disable flags accordingly.
//
// A reference failure is reported but disables nothing: the reference path is
// assumed always functional, and a failure there means the environment is
// broken, not the backend. An accelerated or native failure disables that
// backend for the remainder of the process.
//
// The probe is idempotent and safe to call repeatedly. It always re-attempts
// backends disabled by an earlier probe or by a dispatch-time failure, so a
// recovered backend (a library installed mid-process, a transient failure
// gone) is re-enabled by the next successful probe.
func (e *Engine) HealthCheck() HealthReport {
	report := HealthReport{Errors: map[string]string{}}

	a, b := PrepareVectors(probeSize)

	if _, err := e.reference.Compute(a, b); err != nil {
		report.Errors[string(BackendReference)] = err.Error()
	} else {
		report.Reference = true
	}

	accelErr := e.accelerated.Available()
	if accelErr == nil {
		_, accelErr = e.accelerated.Compute(a, b)
	}
	if accelErr != nil {
		report.Errors[string(BackendAccelerated)] = accelErr.Error()
	} else {
		report.Accelerated = true
	}

	nativeErr := e.native.Available()
	if nativeErr == nil {
		_, nativeErr = e.native.Compute(a, b)
	}
	if nativeErr != nil {
		report.Errors[string(BackendNative)] = nativeErr.Error()
	} else {
		report.Native = true
	}

	// Single guard shared with the dispatcher's own failure-driven
	// disabling, so probe and dispatch never race on the flags.
	e.mu.Lock()
	e.accelAvailable = report.Accelerated
	e.nativeDisabled = !report.Native
	e.accelProbeErr = report.Errors[string(BackendAccelerated)]
	e.nativeProbeErr = report.Errors[string(BackendNative)]
	e.mu.Unlock()

	e.log.Debug("health check",
		"reference", report.Reference,
		"accelerated", report.Accelerated,
		"native", report.Native,
		"errors", report.Errors)
	return report
}
