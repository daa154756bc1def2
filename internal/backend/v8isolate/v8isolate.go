// Package v8isolate is the reference JavaScript/TypeScript back-end: a
// pure-Go evaluator (internal/backend/langexec) for the
// arithmetic/conditional/function-declaration/recursion subset of JS
// spec.md §8's Fibonacci scenario exercises, sufficient to run the
// module's fixtures without embedding a real V8. A production build
// would replace the langexec.Run call in Execute with a cgo binding such
// as github.com/rogchap/v8go; unlike the Wasm back-end, this package has
// no injectable Runner, so that call is the only place such a binding
// would attach.
package v8isolate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rizome-dev/next-rc/internal/backend/basekit"
	"github.com/rizome-dev/next-rc/internal/backend/langexec"
	"github.com/rizome-dev/next-rc/internal/core"
)

var supportedLanguages = map[core.Language]bool{
	core.LanguageJavaScript: true,
	core.LanguageTypeScript: true,
}

// Backend implements the Runtime Back-End Contract (C1) for V8Isolate.
type Backend struct {
	bk   *basekit.Bookkeeping
	sem  chan struct{} // bounds live instances (a slot is held from Instantiate to Destroy), per spec.md §9 Open Question
	mu   sync.Mutex
	warm bool
}

// New creates a V8Isolate reference back-end. maxConcurrentInstances
// bounds how many instances may be live at once before Instantiate
// returns a retriable ErrInstantiation — models a back-end with its own
// capacity ceiling beneath the controller's queue bound.
func New(maxConcurrentInstances int) *Backend {
	if maxConcurrentInstances <= 0 {
		maxConcurrentInstances = 64
	}
	return &Backend{bk: basekit.NewBookkeeping(), sem: make(chan struct{}, maxConcurrentInstances)}
}

func (b *Backend) Kind() core.RuntimeKind { return core.RuntimeV8Isolate }

func (b *Backend) Languages() map[core.Language]bool { return supportedLanguages }

func (b *Backend) SupportsAll() bool { return false }

func (b *Backend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warm = true
	return nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warm = false
	return nil
}

func (b *Backend) Status() core.BackendStatus {
	s := b.bk.Status()
	s.Kind = core.RuntimeV8Isolate
	s.Available = b.warm
	return s
}

func (b *Backend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	if !supportedLanguages[language] {
		return "", core.NewError(core.ErrUnsupportedLanguage, fmt.Sprintf("v8isolate does not support %s", language))
	}
	if _, err := langexec.Parse(code); err != nil {
		return "", core.Wrap(core.ErrCompilation, err)
	}
	id := basekit.NewModuleID()
	b.bk.StoreModule(id, code, language)
	return id, nil
}

func (b *Backend) Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error) {
	if _, _, ok := b.bk.Module(module); !ok {
		return "", core.NewError(core.ErrModuleNotFound, string(module))
	}
	select {
	case b.sem <- struct{}{}:
	default:
		return "", core.NewError(core.ErrInstantiation, "v8isolate at capacity").WithRetriable(true)
	}
	id := basekit.NewInstanceID()
	b.bk.StoreInstance(id, module)
	return id, nil
}

func (b *Backend) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error) {
	code, _, ok := b.bk.InstanceModule(instance)
	if !ok {
		return core.ExecutionResult{}, core.NewError(core.ErrInstanceNotFound, string(instance))
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value, err := langexec.Run(execCtx, code)
	elapsed := time.Since(start)

	if err == langexec.ErrTimeout {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: "execution timed out", ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeV8Isolate},
			core.NewError(core.ErrTimeout, "v8isolate execution exceeded timeout_ms")
	}
	if err != nil {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: err.Error(), ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeV8Isolate},
			core.Wrap(core.ErrExecution, err)
	}

	b.bk.RecordExecution(true, elapsed)
	return core.ExecutionResult{
		Success:         true,
		Output:          []byte(fmt.Sprintf("%d", value)),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Runtime:         core.RuntimeV8Isolate,
	}, nil
}

func (b *Backend) Destroy(ctx context.Context, instance core.InstanceID) error {
	if !b.bk.RemoveInstance(instance) {
		return core.NewError(core.ErrInstanceNotFound, string(instance))
	}
	select {
	case <-b.sem:
	default:
	}
	return nil
}

// PreWarm satisfies backend.PreWarmer. The reference evaluator has no
// real cold-start cost to amortize, so this is a documented no-op.
func (b *Backend) PreWarm(ctx context.Context, n int) error {
	return nil
}
