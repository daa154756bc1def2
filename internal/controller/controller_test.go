package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizome-dev/next-rc/internal/backend"
	"github.com/rizome-dev/next-rc/internal/backend/ebpf"
	"github.com/rizome-dev/next-rc/internal/backend/v8isolate"
	"github.com/rizome-dev/next-rc/internal/backend/wasm"
	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/history"
	"github.com/rizome-dev/next-rc/internal/metrics"
	"github.com/rizome-dev/next-rc/internal/profiler"
	"github.com/rizome-dev/next-rc/internal/scheduler"
)

// sharedMetrics is constructed once: metrics.New() registers against the
// default Prometheus registry, and a second call in the same process
// would panic on duplicate registration.
var (
	sharedMetricsOnce sync.Once
	sharedMetrics     *metrics.Registry
)

func testMetrics() *metrics.Registry {
	sharedMetricsOnce.Do(func() { sharedMetrics = metrics.New() })
	return sharedMetrics
}

// newTestController wires the three in-process reference back-ends and
// a scheduler, with no security coordinator — the lifecycle scenarios
// don't need cordon workers or capability checks.
func newTestController(t *testing.T) *Controller {
	t.Helper()
	reg := backend.NewRegistry()
	reg.Register(wasm.New(wasm.Config{}, 8))
	reg.Register(ebpf.New())
	reg.Register(v8isolate.New(8))

	require.NoError(t, reg.InitializeAll(context.Background()))

	sched := scheduler.New(profiler.New(), scheduler.NewSelector(), history.New(100))

	return New(Config{Concurrency: 10, EnableScheduler: true}, reg, sched, nil, nil, testMetrics(), nil)
}

// Scenario 1: a JavaScript Fibonacci task must route to V8Isolate and
// produce fib(10) == 55.
func TestExecuteWithSchedulerJavaScriptFibonacci(t *testing.T) {
	ctrl := newTestController(t)
	task := core.Task{
		Code:         "function main() { function fib(n) { return n <= 1 ? n : fib(n-1) + fib(n-2); } return fib(10); }",
		Language:     core.LanguageJavaScript,
		LatencyClass: core.LatencyNormal,
		Complexity:   core.ComplexitySimple,
	}
	res, err := ctrl.ExecuteWithScheduler(context.Background(), task, core.ExecutionConfig{TimeoutMs: 1000})
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeV8Isolate, res.Decision.Choice.Runtime)
	assert.True(t, res.Result.Success)
	assert.Equal(t, "55", string(res.Result.Output))
}

// Scenario 2: an ultra-low-latency C filter must route to Ebpf and
// complete within a generous bound for a unit test environment.
func TestExecuteWithSchedulerUltraLowFilter(t *testing.T) {
	ctrl := newTestController(t)
	task := core.Task{
		Code:         "function filter(packet) { if (packet == 80) { return 1; } return 0; }",
		Language:     core.LanguageC,
		LatencyClass: core.LatencyUltraLow,
	}
	res, err := ctrl.ExecuteWithScheduler(context.Background(), task, core.ExecutionConfig{TimeoutMs: 50})
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeEbpf, res.Decision.Choice.Runtime)
	assert.True(t, res.Result.Success)
	assert.Less(t, res.Result.ExecutionTimeMs, int64(10))
}

// Scenario 3: a moderate-complexity Rust task with no IO/memory/filter
// signal falls to the default HeavyCompute profile, whose mapping
// routes to Wasm.
func TestExecuteWithSchedulerModerateComplexityGoesToWasm(t *testing.T) {
	ctrl := newTestController(t)
	task := core.Task{
		Code:         "return 1 + 2 * 3;",
		Language:     core.LanguageRust,
		LatencyClass: core.LatencyLow,
		Complexity:   core.ComplexityModerate,
	}
	res, err := ctrl.ExecuteWithScheduler(context.Background(), task, core.ExecutionConfig{TimeoutMs: 1000})
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeWasm, res.Decision.Choice.Runtime)
	assert.True(t, res.Result.Success)
	assert.Equal(t, "7", string(res.Result.Output))
}

// Scenario 4: an infinite loop must be aborted by the per-execution
// timeout and reported as core.ErrTimeout well within a generous bound.
func TestExecuteWithSchedulerInfiniteLoopTimesOut(t *testing.T) {
	ctrl := newTestController(t)
	task := core.Task{
		Code:         "while (true) { }",
		Language:     core.LanguageGo,
		LatencyClass: core.LatencyRelaxed,
		Complexity:   core.ComplexityComplex,
	}
	start := time.Now()
	res, err := ctrl.ExecuteWithScheduler(context.Background(), task, core.ExecutionConfig{TimeoutMs: 50})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.ErrTimeout))
	assert.False(t, res.Result.Success)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

// Scenario 6: when only V8Isolate is registered, an IO-intensive JS task
// whose profile mapping (Firecracker) and latency-class rule both miss
// must still fall through to V8Isolate via the language-compatibility
// rule.
func TestExecuteWithSchedulerFallsBackWhenOnlyV8IsolateRegistered(t *testing.T) {
	reg := backend.NewRegistry()
	v8 := v8isolate.New(8)
	reg.Register(v8)
	require.NoError(t, reg.InitializeAll(context.Background()))

	sched := scheduler.New(profiler.New(), scheduler.NewSelector(), history.New(100))
	ctrl := New(Config{Concurrency: 10, EnableScheduler: true}, reg, sched, nil, nil, testMetrics(), nil)

	task := core.Task{
		Code:         "return 41 + 1;",
		Language:     core.LanguageJavaScript,
		LatencyClass: core.LatencyRelaxed,
		IOHint:       true,
	}
	res, err := ctrl.ExecuteWithScheduler(context.Background(), task, core.ExecutionConfig{TimeoutMs: 1000})
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeV8Isolate, res.Decision.Choice.Runtime)
	assert.Equal(t, "language compatibility", res.Decision.Choice.Reason)
	assert.Equal(t, "42", string(res.Result.Output))
}

func TestCompileInstantiateExecuteDestroyLifecycle(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()

	module, err := ctrl.Compile(ctx, "return 10;", core.LanguageRust)
	require.NoError(t, err)

	instance, err := ctrl.Instantiate(ctx, module)
	require.NoError(t, err)

	result, err := ctrl.Execute(ctx, instance, core.ExecutionConfig{TimeoutMs: 1000})
	require.NoError(t, err)
	assert.Equal(t, "10", string(result.Output))

	require.NoError(t, ctrl.Destroy(ctx, instance))

	_, err = ctrl.Execute(ctx, instance, core.ExecutionConfig{TimeoutMs: 1000})
	assert.True(t, core.IsKind(err, core.ErrInstanceNotFound))
}

func TestInstantiateUnknownModuleFails(t *testing.T) {
	ctrl := newTestController(t)
	_, err := ctrl.Instantiate(context.Background(), core.ModuleID("does-not-exist"))
	assert.True(t, core.IsKind(err, core.ErrModuleNotFound))
}

func TestExecuteWithSchedulerDisabledReturnsInvalidInput(t *testing.T) {
	reg := backend.NewRegistry()
	ctrl := New(Config{Concurrency: 10, EnableScheduler: false}, reg, nil, nil, nil, testMetrics(), nil)
	_, err := ctrl.ExecuteWithScheduler(context.Background(), core.Task{}, core.ExecutionConfig{})
	assert.True(t, core.IsKind(err, core.ErrInvalidInput))
}

func TestStatusReportsQueueAndBackends(t *testing.T) {
	ctrl := newTestController(t)
	status := ctrl.Status()
	assert.Equal(t, 10, status.QueueCapacity)
	assert.Equal(t, 0, status.QueueDepth)
	assert.Len(t, status.Backends, 3)
}

func TestShutdownStopsBackends(t *testing.T) {
	ctrl := newTestController(t)
	require.NoError(t, ctrl.Shutdown(context.Background()))
	for _, s := range ctrl.Status().Backends {
		assert.False(t, s.Available)
	}
}
