// Package wasm is the reference back-end for languages that compile to
// WebAssembly in this module's scope (Rust, C, Cpp, Go, and Wasm
// itself). Grounded on other_examples' toolexec wasm backend: a
// Config{Runtime, MaxMemoryPages, Client Runner} shape where Runner is
// a small injectable interface, so a real wazero/wasmtime engine can
// replace the bundled evaluator without changing Backend's contract
// surface.
package wasm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rizome-dev/next-rc/internal/backend/basekit"
	"github.com/rizome-dev/next-rc/internal/backend/langexec"
	"github.com/rizome-dev/next-rc/internal/core"
)

// Runner executes a compiled module's source and returns its result.
// The bundled evaluatorRunner satisfies this with the in-process
// langexec interpreter; a WazeroRunner wrapping a real
// github.com/tetratelabs/wazero engine would satisfy it for genuinely
// compiled WebAssembly bytes.
type Runner interface {
	Run(ctx context.Context, code string) (int64, error)
}

type evaluatorRunner struct{}

func (evaluatorRunner) Run(ctx context.Context, code string) (int64, error) {
	return langexec.Run(ctx, code)
}

// Config configures a Wasm backend, mirroring the teacher example's
// Config{Runtime, MaxMemoryPages, EnableWASI, Client} shape.
type Config struct {
	Runtime        string // "wazero" (default), documented seam for a real engine
	MaxMemoryPages int    // 64KB pages; default 4096 (256 MiB ceiling)
	EnableWASI     bool
	Client         Runner // defaults to evaluatorRunner{} when nil
}

var supportedLanguages = map[core.Language]bool{
	core.LanguageRust: true,
	core.LanguageC:    true,
	core.LanguageCpp:  true,
	core.LanguageGo:   true,
	core.LanguageWasm: true,
}

// Backend implements the Runtime Back-End Contract (C1) for Wasm.
type Backend struct {
	cfg  Config
	bk   *basekit.Bookkeeping
	sem  chan struct{}
	mu   sync.Mutex
	warm bool
}

// New creates a Wasm reference back-end.
func New(cfg Config, maxConcurrentInstances int) *Backend {
	if cfg.Runtime == "" {
		cfg.Runtime = "wazero"
	}
	if cfg.MaxMemoryPages <= 0 {
		cfg.MaxMemoryPages = 4096
	}
	if cfg.Client == nil {
		cfg.Client = evaluatorRunner{}
	}
	if maxConcurrentInstances <= 0 {
		maxConcurrentInstances = 64
	}
	return &Backend{cfg: cfg, bk: basekit.NewBookkeeping(), sem: make(chan struct{}, maxConcurrentInstances)}
}

func (b *Backend) Kind() core.RuntimeKind             { return core.RuntimeWasm }
func (b *Backend) Languages() map[core.Language]bool { return supportedLanguages }
func (b *Backend) SupportsAll() bool                  { return false }

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
	s.Kind = core.RuntimeWasm
	s.Available = b.warm
	return s
}

func (b *Backend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	if !supportedLanguages[language] {
		return "", core.NewError(core.ErrUnsupportedLanguage, fmt.Sprintf("wasm backend does not support %s", language))
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
		return "", core.NewError(core.ErrInstantiation, "wasm backend at capacity").WithRetriable(true)
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
	value, err := b.cfg.Client.Run(execCtx, code)
	elapsed := time.Since(start)

	if err == langexec.ErrTimeout {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: "execution timed out", ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeWasm},
			core.NewError(core.ErrTimeout, "wasm execution exceeded timeout_ms")
	}
	if err != nil {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: err.Error(), ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeWasm},
			core.Wrap(core.ErrExecution, err)
	}

	b.bk.RecordExecution(true, elapsed)
	return core.ExecutionResult{
		Success:         true,
		Output:          []byte(fmt.Sprintf("%d", value)),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Runtime:         core.RuntimeWasm,
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

// PreWarm is a documented no-op for the in-process evaluator; a real
// wazero-backed Runner would use it to pre-compile modules into an idle
// pool.
func (b *Backend) PreWarm(ctx context.Context, n int) error {
	return nil
}
