// internal/dispatch/executor.go
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/user/metareply/internal/types"
)

// Handle tracks one scheduled task through its lifecycle
// (scheduled → fired | cancelled | expired). Transitions are CAS-driven: a
// task that has already settled ignores further transition requests, which
// tolerates the race where a task fires just as cancellation is requested.
type Handle struct {
	id       types.TaskID
	name     string
	state    atomic.Int32
	timer    *time.Timer
	fireAt   time.Time
	expireAt time.Time
	// release balances the executor's wait group when cancellation stops
	// the timer before it ever fires.
	release func()
}

// ID returns the task identifier.
func (h *Handle) ID() types.TaskID {
	return h.id
}

// Status returns the current lifecycle state.
func (h *Handle) Status() types.TaskStatus {
	return types.TaskStatus(h.state.Load())
}

// Cancel requests the task not fire. Returns true on the scheduled→cancelled
// transition; cancelling a task that already fired, expired, or was cancelled
// is a no-op returning false.
func (h *Handle) Cancel() bool {
	if h.state.CompareAndSwap(int32(types.TaskScheduled), int32(types.TaskCancelled)) {
		// If Stop wins, the timer callback never runs and its wait-group
		// slot must be released here. If it loses, the callback is already
		// running and will observe the cancelled state itself.
		if h.timer != nil && h.timer.Stop() && h.release != nil {
			h.release()
		}
		return true
	}
	return false
}

// Executor is an in-process delayed task backend. Callbacks run on a worker
// pool bounded by a weighted semaphore; a task that cannot be admitted to a
// worker before its expiry deadline is dropped without running. Failed
// callbacks are retried per the executor's RetryPolicy.
type Executor struct {
	sem   *semaphore.Weighted
	retry *RetryPolicy
	cron  *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[types.TaskID]*Handle
}

// New creates an Executor allowing up to maxWorkers concurrent callbacks.
// sweepSchedule is a cron expression for the settled-task sweep; empty means
// every minute.
func New(maxWorkers int64, sweepSchedule string) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if sweepSchedule == "" {
		sweepSchedule = "@every 1m"
	}
	e := &Executor{
		sem:   semaphore.NewWeighted(maxWorkers),
		retry: DefaultRetryPolicy(),
		tasks: make(map[types.TaskID]*Handle),
	}
	e.cron = cron.New()
	if _, err := e.cron.AddFunc(sweepSchedule, e.sweep); err != nil {
		slog.Error("invalid sweep schedule, falling back to 1m", "schedule", sweepSchedule, "error", err)
		_, _ = e.cron.AddFunc("@every 1m", e.sweep)
	}
	return e
}

// SetRetryPolicy replaces the retry policy. Must be called before Start.
func (e *Executor) SetRetryPolicy(p *RetryPolicy) {
	e.retry = p
}

// Start initialises the executor's context and starts the sweep ticker.
// Must be called before Schedule.
func (e *Executor) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.cron.Start()
}

// Stop cancels pending tasks, stops the sweep ticker, and waits for
// in-flight callbacks to finish. A callback racing the shutdown runs to
// completion; its timer already fired.
func (e *Executor) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.cron.Stop()

	e.mu.Lock()
	for _, h := range e.tasks {
		h.Cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// Schedule queues fn to run after delay, with an expiry window measured from
// the fire time. The returned handle can cancel the task until it fires.
func (e *Executor) Schedule(name string, delay, expiry time.Duration, fn types.TaskCallback) types.TaskHandle {
	h := &Handle{
		id:     types.NewTaskID(),
		name:   name,
		fireAt: time.Now().Add(delay),
	}
	h.expireAt = h.fireAt.Add(expiry)

	e.mu.Lock()
	e.tasks[h.id] = h
	e.mu.Unlock()

	e.wg.Add(1)
	h.release = e.wg.Done
	h.timer = time.AfterFunc(delay, func() {
		defer e.wg.Done()
		e.run(h, fn)
	})

	slog.Debug("task scheduled",
		"task", name,
		"task_id", h.id,
		"delay", delay,
		"expires_at", h.expireAt,
	)
	return h
}

// run admits the task to the worker pool and executes its callback. The
// fired transition happens only after admission and the expiry check, so a
// cancellation arriving while the task waits for a worker still wins.
func (e *Executor) run(h *Handle, fn types.TaskCallback) {
	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		h.state.CompareAndSwap(int32(types.TaskScheduled), int32(types.TaskCancelled))
		return
	}
	defer e.sem.Release(1)

	if time.Now().After(h.expireAt) {
		if h.state.CompareAndSwap(int32(types.TaskScheduled), int32(types.TaskExpired)) {
			slog.Warn("task expired before firing", "task", h.name, "task_id", h.id)
		}
		return
	}

	if !h.state.CompareAndSwap(int32(types.TaskScheduled), int32(types.TaskFired)) {
		return
	}

	if err := e.retry.Execute(e.ctx, func() error { return fn(e.ctx) }); err != nil {
		slog.Error("task failed after retries", "task", h.name, "task_id", h.id, "error", err)
	}
}

// Pending returns the number of tasks still in the scheduled state.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, h := range e.tasks {
		if h.Status() == types.TaskScheduled {
			count++
		}
	}
	return count
}

// sweep drops settled task records and logs what remains in flight.
func (e *Executor) sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	var pending int
	for id, h := range e.tasks {
		switch h.Status() {
		case types.TaskScheduled:
			pending++
		default:
			delete(e.tasks, id)
		}
	}
	slog.Debug("task sweep", "pending", pending)
}
