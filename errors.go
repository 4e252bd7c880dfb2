package mcpulse

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/mcpulse/internal/isolate"
)

// ErrNoResult is the cause of a [ProbeExecutionError] when the probe's
// isolation unit ended, or ran past its bound, without reporting a result.
var ErrNoResult = isolate.ErrNoResult

// ErrProbePanicked is the cause of a [ProbeExecutionError] when the probe
// panicked.
var ErrProbePanicked = isolate.ErrPanicked

// ProbeExecutionError reports that a probe could not be carried out at all.
//
// It is distinct from an offline result: the server's state is unknown
// because the probe itself failed. Callers should treat it as retryable
// and report it as "could not check status" rather than "server offline".
// The cache is never written when this error is returned.
//
// Detect it with [errors.As]:
//
//	var perr *mcpulse.ProbeExecutionError
//	if errors.As(err, &perr) {
//	    log.Printf("probe failed, correlation id %s", perr.CorrelationID)
//	}
type ProbeExecutionError struct {
	// Address is the target's cache key.
	Address string

	// CorrelationID matches the server-side log entry for this failure.
	CorrelationID string

	// Cause is [ErrNoResult] or wraps [ErrProbePanicked].
	Cause error
}

func (e *ProbeExecutionError) Error() string {
	return fmt.Sprintf("probe execution failed for %s (correlation_id: %s): %v", e.Address, e.CorrelationID, e.Cause)
}

func (e *ProbeExecutionError) Unwrap() error {
	return e.Cause
}

// asProbeExecutionError converts an isolation fault. Other errors are
// returned unchanged.
func asProbeExecutionError(err error) error {
	var fault *isolate.Fault
	if !errors.As(err, &fault) {
		return err
	}
	return &ProbeExecutionError{
		Address:       fault.Address,
		CorrelationID: fault.CorrelationID,
		Cause:         fault.Cause,
	}
}
