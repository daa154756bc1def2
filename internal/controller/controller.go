// Package controller implements the Execution Controller (C11): the
// single entry point that wires C1 (back-ends), C6 (security
// coordinator), and C7-C10 (scheduler) into the compile/instantiate/
// execute/destroy/execute_with_scheduler/shutdown operations of
// spec.md §4.1, grounded on cmd/server/main.go's wiring style and
// internal/ghostpool.PoolManager's acquire/release shape.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rizome-dev/next-rc/internal/backend"
	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/metrics"
	"github.com/rizome-dev/next-rc/internal/scheduler"
	"github.com/rizome-dev/next-rc/internal/security/coordinator"
	"github.com/rizome-dev/next-rc/internal/security/cordon"
)

// DefaultConcurrency is the queue capacity used when Config.Concurrency
// is unset.
const DefaultConcurrency = 100

// Config configures a Controller.
type Config struct {
	Concurrency     int
	EnableScheduler bool
}

// Controller is the execution controller (C11).
type Controller struct {
	registry    *backend.Registry
	scheduler   *scheduler.Scheduler
	coordinator *coordinator.Coordinator
	cordon      *cordon.Manager
	metrics     *metrics.Registry
	logger      *slog.Logger

	enableScheduler bool

	queue chan struct{} // ticket semaphore: acquire = send, release = receive

	mu            sync.RWMutex
	moduleOwner   map[core.ModuleID]core.RuntimeKind
	instanceOwner map[core.InstanceID]core.RuntimeKind

	initOnce sync.Once
	initErr  error
}

// New wires a Controller from its collaborators. cordonMgr and mr may be nil —
// metrics recording and cordon.Close-on-shutdown are both best-effort.
func New(cfg Config, reg *backend.Registry, sch *scheduler.Scheduler, coord *coordinator.Coordinator, cordonMgr *cordon.Manager, mr *metrics.Registry, logger *slog.Logger) *Controller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		registry:        reg,
		scheduler:       sch,
		coordinator:     coord,
		cordon:          cordonMgr,
		metrics:         mr,
		logger:          logger.With("component", "controller"),
		enableScheduler: cfg.EnableScheduler,
		queue:           make(chan struct{}, cfg.Concurrency),
		moduleOwner:     make(map[core.ModuleID]core.RuntimeKind),
		instanceOwner:   make(map[core.InstanceID]core.RuntimeKind),
	}
}

// ensureInitialized guarantees every registered back-end has been
// initialized exactly once before first use, per spec.md §4.1's
// ensure_initialized invariant — callers no longer need to remember to
// call registry.InitializeAll themselves.
func (c *Controller) ensureInitialized(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.registry.InitializeAll(ctx)
	})
	return c.initErr
}

// acquire reserves a queue ticket, blocking until one is free or ctx is
// done.
func (c *Controller) acquire(ctx context.Context) error {
	select {
	case c.queue <- struct{}{}:
		return nil
	case <-ctx.Done():
		return core.Wrap(core.ErrTimeout, ctx.Err())
	}
}

func (c *Controller) release() {
	select {
	case <-c.queue:
	default:
	}
}

// Compile resolves the static language->back-end mapping table (§4.4)
// and compiles code against the first available back-end in preference
// order, tagging the returned module with its owning back-end kind so
// Instantiate never needs to probe every registered back-end.
func (c *Controller) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}
	b, ok := c.registry.DefaultBackendFor(language)
	if !ok {
		return "", core.NewError(core.ErrNoRuntimeAvailable, "no back-end available for language").WithDetails(string(language))
	}
	return c.compileOn(ctx, b, code, language)
}

func (c *Controller) compileOn(ctx context.Context, b backend.Backend, code string, language core.Language) (core.ModuleID, error) {
	id, err := b.Compile(ctx, code, language)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.moduleOwner[id] = b.Kind()
	c.mu.Unlock()
	return id, nil
}

// Instantiate creates a fresh instance from a previously compiled
// module, looking up its owning back-end in O(1) instead of probing
// every registered back-end.
func (c *Controller) Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	kind, ok := c.moduleOwner[module]
	c.mu.RUnlock()
	if !ok {
		return "", core.NewError(core.ErrModuleNotFound, string(module))
	}
	b, ok := c.registry.Get(kind)
	if !ok {
		return "", core.NewError(core.ErrNoRuntimeAvailable, string(kind))
	}
	id, err := b.Instantiate(ctx, module)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.instanceOwner[id] = kind
	c.mu.Unlock()
	return id, nil
}

// Execute runs a previously instantiated instance under the bounded
// queue, establishing a security context for the duration of the call
// and guaranteeing teardown on every exit path, including a recovered
// back-end panic.
func (c *Controller) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (result core.ExecutionResult, err error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return core.ExecutionResult{}, err
	}
	if err := c.acquire(ctx); err != nil {
		return core.ExecutionResult{}, err
	}
	defer c.release()

	c.mu.RLock()
	kind, ok := c.instanceOwner[instance]
	c.mu.RUnlock()
	if !ok {
		return core.ExecutionResult{}, core.NewError(core.ErrInstanceNotFound, string(instance))
	}
	b, ok := c.registry.Get(kind)
	if !ok {
		return core.ExecutionResult{}, core.NewError(core.ErrNoRuntimeAvailable, string(kind))
	}

	var sc *coordinator.Context
	if c.coordinator != nil {
		sc, err = c.coordinator.CreateSecurityContext(ctx, cfg.Permissions)
		if err != nil {
			return core.ExecutionResult{}, err
		}
		defer c.coordinator.Teardown(sc)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered panic during execute", "runtime", kind, "recovered", r)
			err = core.NewError(core.ErrExecution, "back-end panicked during execute")
		}
	}()

	start := time.Now()
	result, err = b.Execute(ctx, instance, cfg)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordExecution(kind, err == nil && result.Success, elapsed.Seconds())
	}
	return result, err
}

// Destroy releases an instance's resources and forgets its ownership
// entry.
func (c *Controller) Destroy(ctx context.Context, instance core.InstanceID) error {
	if err := c.ensureInitialized(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	kind, ok := c.instanceOwner[instance]
	c.mu.RUnlock()
	if !ok {
		return core.NewError(core.ErrInstanceNotFound, string(instance))
	}
	b, ok := c.registry.Get(kind)
	if !ok {
		return core.NewError(core.ErrNoRuntimeAvailable, string(kind))
	}
	if err := b.Destroy(ctx, instance); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.instanceOwner, instance)
	c.mu.Unlock()
	return nil
}

// SchedulerResult is the outcome of ExecuteWithScheduler: the routing
// decision plus the execution result.
type SchedulerResult struct {
	Decision scheduler.Decision
	Result   core.ExecutionResult
}

// ExecuteWithScheduler is the one-shot compile -> instantiate -> execute
// -> destroy lifecycle, routed through C7 (profiler) -> C9 (history) ->
// C8 (selector) -> C6 (security coordinator) -> C1 (back-end) -> C9
// (record outcome) -> C6 (teardown), per spec.md §2's data-flow
// description. Every exit path destroys the instance and tears down the
// security context, even on a scheduling or compile failure partway
// through.
func (c *Controller) ExecuteWithScheduler(ctx context.Context, task core.Task, cfg core.ExecutionConfig) (SchedulerResult, error) {
	if !c.enableScheduler || c.scheduler == nil {
		return SchedulerResult{}, core.NewError(core.ErrInvalidInput, "scheduler is disabled")
	}
	if err := c.ensureInitialized(ctx); err != nil {
		return SchedulerResult{}, err
	}

	decision, err := c.scheduler.Decide(task, cfg.MemoryLimitBytes, c.registry.RuntimeInfos())
	if err != nil {
		return SchedulerResult{Decision: decision}, err
	}
	if c.metrics != nil {
		c.metrics.RecordDecision(decision.Profile, decision.Choice.Runtime)
	}

	b, ok := c.registry.Get(decision.Choice.Runtime)
	if !ok {
		return SchedulerResult{Decision: decision}, core.NewError(core.ErrNoRuntimeAvailable, string(decision.Choice.Runtime))
	}

	if err := c.acquire(ctx); err != nil {
		return SchedulerResult{Decision: decision}, err
	}
	defer c.release()

	module, err := c.compileOn(ctx, b, task.Code, task.Language)
	if err != nil {
		return SchedulerResult{Decision: decision}, err
	}

	instance, err := b.Instantiate(ctx, module)
	if err != nil {
		return SchedulerResult{Decision: decision}, err
	}
	c.mu.Lock()
	c.instanceOwner[instance] = b.Kind()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.instanceOwner, instance)
		c.mu.Unlock()
		_ = b.Destroy(context.Background(), instance)
	}()

	var sc *coordinator.Context
	if c.coordinator != nil {
		sc, err = c.coordinator.CreateSecurityContext(ctx, cfg.Permissions)
		if err != nil {
			return SchedulerResult{Decision: decision}, err
		}
		defer c.coordinator.Teardown(sc)
	}

	start := time.Now()
	result, execErr := func() (res core.ExecutionResult, outErr error) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("recovered panic during scheduled execute", "runtime", b.Kind(), "recovered", r)
				outErr = core.NewError(core.ErrExecution, "back-end panicked during execute")
			}
		}()
		return b.Execute(ctx, instance, cfg)
	}()
	totalElapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordExecution(b.Kind(), execErr == nil && result.Success, totalElapsed.Seconds())
	}

	c.scheduler.Record(decision, core.HistoryEntry{
		Runtime:         b.Kind(),
		Success:         execErr == nil && result.Success,
		ExecutionTimeMs: result.ExecutionTimeMs,
		TotalTimeMs:     totalElapsed.Milliseconds(),
		MemoryUsedBytes: result.MemoryUsedBytes,
		Timestamp:       time.Now(),
	})

	return SchedulerResult{Decision: decision, Result: result}, execErr
}

// Status returns per-back-end status plus queue depth, feeding the §6
// metrics snapshot — mirrors PoolManager.Stats().
type Status struct {
	QueueDepth    int
	QueueCapacity int
	Backends      map[core.RuntimeKind]core.BackendStatus
}

// Status reports the controller's current load and every registered
// back-end's bookkeeping counters.
func (c *Controller) Status() Status {
	backends := make(map[core.RuntimeKind]core.BackendStatus)
	for _, b := range c.registry.All() {
		backends[b.Kind()] = b.Status()
	}
	return Status{
		QueueDepth:    len(c.queue),
		QueueCapacity: cap(c.queue),
		Backends:      backends,
	}
}

// Shutdown stops accepting new work, shuts down every back-end, and
// closes the process-cordon manager. Idempotent at the back-end level
// since Backend.Shutdown is required to be.
func (c *Controller) Shutdown(ctx context.Context) error {
	err := c.registry.ShutdownAll(ctx)
	if c.cordon != nil {
		c.cordon.Close()
	}
	return err
}
