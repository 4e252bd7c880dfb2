package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/mcpulse/internal/status"
)

// PollFunc probes the server with the given name once.
//
// A returned error means no status could be determined; it does not mean
// the server is offline.
type PollFunc func(ctx context.Context, name string) (status.Result, error)

// ServerInfo identifies one server to poll.
type ServerInfo struct {
	// Name is the unique key passed to the PollFunc.
	Name string

	// Address is the target's cache key, carried through for logging.
	Address string

	// Interval is this server's polling interval. If 0, the scheduler's
	// global interval is used.
	Interval time.Duration
}

// Result is the outcome of one scheduled poll.
type Result struct {
	Name      string
	Address   string
	Status    status.Result
	Err       error
	Duration  time.Duration
	CheckedAt time.Time
}

// Scheduler manages periodic polling of multiple servers.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	servers        []ServerInfo
	interval       time.Duration // global default interval
	maxConcurrency int
	poll           PollFunc
	results        chan Result
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// per-server timing for tick-and-check pattern
	lastPolledAt map[string]time.Time
	baseInterval time.Duration
}

// NewScheduler creates a new polling [Scheduler].
//
// Parameters:
//   - servers: servers to poll, with unique names
//   - interval: default time between polls of one server
//   - maxConcurrency: maximum number of probes in flight
//   - poll: the probe to run for each due server
//   - logger: logger for scheduler events (panic recovery, etc.)
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(servers []ServerInfo, interval time.Duration, maxConcurrency int, poll PollFunc, logger *slog.Logger) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Scheduler{
		servers:        servers,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		poll:           poll,
		results:        make(chan Result, len(servers)),
		logger:         logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed when the scheduler stops.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// calculateBaseInterval determines the tick interval for the scheduler.
// Uses the GCD of all server intervals to ensure timely polling.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.servers) == 0 {
		return s.interval
	}

	intervals := make([]time.Duration, 0, len(s.servers))
	for _, srv := range s.servers {
		if srv.Interval > 0 {
			intervals = append(intervals, srv.Interval)
		} else {
			intervals = append(intervals, s.interval)
		}
	}

	result := intervals[0]
	for _, d := range intervals[1:] {
		result = gcdDuration(result, d)
	}

	// floor at 1 second to prevent CPU thrashing
	if result < time.Second {
		result = time.Second
	}

	return result
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking. The scheduler polls every server immediately, then
// ticks at the GCD of all intervals and polls the servers that are due,
// until [Scheduler.Stop] is called or ctx is cancelled.
//
// Start is idempotent. If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastPolledAt = make(map[string]time.Time, len(s.servers))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.pollDueServers(pollCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.pollDueServers(pollCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler and waits for in-flight probes to finish and the
// results channel to close.
//
// Stop is idempotent. Calling Stop before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// pollDueServers polls only servers that are due based on their intervals.
// If immediate is true, polls all servers regardless of timing.
//
// lastPolledAt is updated when a poll starts, so the effective interval of
// a slow server is its configured interval plus its probe duration.
func (s *Scheduler) pollDueServers(ctx context.Context, immediate bool) {
	now := time.Now()
	due := make([]ServerInfo, 0, len(s.servers))

	s.mu.Lock()
	for _, srv := range s.servers {
		if immediate {
			due = append(due, srv)
			s.lastPolledAt[srv.Name] = now
			continue
		}

		interval := srv.Interval
		if interval == 0 {
			interval = s.interval
		}

		lastPolled, exists := s.lastPolledAt[srv.Name]
		if !exists || now.Sub(lastPolled) >= interval {
			due = append(due, srv)
			s.lastPolledAt[srv.Name] = now
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}

	s.pollServers(ctx, due)
}

// pollServers polls a subset of servers concurrently, respecting maxConcurrency.
func (s *Scheduler) pollServers(ctx context.Context, servers []ServerInfo) {
	jobs := make(chan ServerInfo, len(servers))

	var wg sync.WaitGroup
	for i := 0; i < s.maxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for srv := range jobs {
				result := s.pollServer(ctx, srv)
				if ctx.Err() != nil {
					// shutting down; the probe was abandoned
					return
				}
				select {
				case s.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, srv := range servers {
		select {
		case jobs <- srv:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)

	wg.Wait()
}

// pollServer runs the PollFunc for one server.
func (s *Scheduler) pollServer(ctx context.Context, srv ServerInfo) Result {
	start := time.Now()
	res, err := s.safePoll(ctx, srv)

	return Result{
		Name:      srv.Name,
		Address:   srv.Address,
		Status:    res,
		Err:       err,
		Duration:  time.Since(start),
		CheckedAt: time.Now(),
	}
}

// safePoll calls the PollFunc with panic recovery.
// If it panics, the full stack trace is logged with a correlation ID and
// an error containing the ID is returned.
func (s *Scheduler) safePoll(ctx context.Context, srv ServerInfo) (res status.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			s.logger.Error("poll panic",
				"correlation_id", correlationID,
				"server", srv.Name,
				"address", srv.Address,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			res = status.Result{}
			err = fmt.Errorf("poll panic (correlation_id: %s)", correlationID)
		}
	}()
	return s.poll(ctx, srv.Name)
}
