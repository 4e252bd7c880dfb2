package isolate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/mcpulse/internal/status"
)

// DefaultMargin is added to a job's bound to cover goroutine startup and
// scheduling delay.
const DefaultMargin = 2 * time.Second

var (
	// ErrNoResult means the probe never delivered a result: it exited its
	// goroutine early or was still running when the bound expired.
	ErrNoResult = errors.New("probe produced no result")

	// ErrPanicked wraps a recovered panic value.
	ErrPanicked = errors.New("probe panicked")
)

// Probe is the unit of work run by a [Runner].
type Probe func(ctx context.Context) status.Result

// Job describes one probe invocation.
type Job struct {
	// Address identifies the target in logs and faults.
	Address string

	// Bound is the probe's own protocol timeout. The runner waits
	// Bound plus its margin before giving up.
	Bound time.Duration

	Probe Probe
}

// Fault is returned when a probe terminated abnormally.
type Fault struct {
	Address       string
	CorrelationID string
	Cause         error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("probe %s failed (correlation_id: %s): %v", f.Address, f.CorrelationID, f.Cause)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// Runner executes jobs. The zero value is not usable; use [New].
type Runner struct {
	logger *slog.Logger
	margin time.Duration
}

// New creates a [Runner]. A nil logger falls back to slog.Default and a
// non-positive margin to [DefaultMargin].
func New(logger *slog.Logger, margin time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Runner{logger: logger, margin: margin}
}

// Margin returns the grace period added to every job's bound.
func (r *Runner) Margin() time.Duration {
	return r.margin
}

type outcome struct {
	result status.Result
	err    error
}

// Run executes job.Probe in a new goroutine and waits for its single reply.
//
// It returns ctx.Err() if ctx is done first; the probe's context is then
// cancelled and its late reply is discarded. A panic, an early goroutine
// exit or a missing reply after Bound+margin yields a *Fault.
func (r *Runner) Run(ctx context.Context, job Job) (status.Result, error) {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so an abandoned probe never blocks on send
	done := make(chan outcome, 1)

	go func() {
		finished := false
		defer func() {
			if finished {
				return
			}
			if rec := recover(); rec != nil {
				done <- outcome{err: r.panicFault(job.Address, rec)}
				return
			}
			// runtime.Goexit or similar: unwound without returning
			done <- outcome{err: r.fault(job.Address, ErrNoResult)}
		}()

		res := job.Probe(probeCtx)
		finished = true
		done <- outcome{result: res}
	}()

	timer := time.NewTimer(job.Bound + r.margin)
	defer timer.Stop()

	select {
	case out := <-done:
		if ctx.Err() != nil {
			return status.Result{}, ctx.Err()
		}
		return out.result, out.err
	case <-ctx.Done():
		return status.Result{}, ctx.Err()
	case <-timer.C:
		return status.Result{}, r.fault(job.Address, ErrNoResult)
	}
}

// Inline executes job.Probe on the calling goroutine. Panics are still
// recovered and reported as a *Fault, but there is no extra bound beyond
// the probe's own timeout.
func (r *Runner) Inline(ctx context.Context, job Job) (result status.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = status.Result{}
			err = r.panicFault(job.Address, rec)
		}
	}()

	result = job.Probe(ctx)
	if ctx.Err() != nil {
		return status.Result{}, ctx.Err()
	}
	return result, nil
}

func (r *Runner) panicFault(address string, rec any) *Fault {
	correlationID := uuid.NewString()

	r.logger.Error("probe panic",
		"correlation_id", correlationID,
		"address", address,
		"panic", fmt.Sprintf("%v", rec),
		"stack", string(debug.Stack()),
	)

	return &Fault{
		Address:       address,
		CorrelationID: correlationID,
		Cause:         fmt.Errorf("%w: %v", ErrPanicked, rec),
	}
}

func (r *Runner) fault(address string, cause error) *Fault {
	correlationID := uuid.NewString()

	r.logger.Error("probe did not report",
		"correlation_id", correlationID,
		"address", address,
		"error", cause.Error(),
	)

	return &Fault{Address: address, CorrelationID: correlationID, Cause: cause}
}
