// Package ebpf is the reference back-end for SimpleFilter / ultra-low
// latency workloads. Grounded on the teacher's internal/ringbuf reader
// and cmd/probe's cilium/ebpf usage: Initialize calls
// github.com/cilium/ebpf/rlimit.RemoveMemlock the way the teacher does
// before attaching any BPF object, and — mirroring the teacher's
// SandboxExecutor.IsAvailable() "demo mode" fallback — falls back to a
// verified-filter simulator (the same restricted langexec evaluator the
// wasm/v8isolate back-ends use) in environments without usable BPF
// support, rather than failing to initialize.
package ebpf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cilium/ebpf/rlimit"

	"github.com/rizome-dev/next-rc/internal/backend/basekit"
	"github.com/rizome-dev/next-rc/internal/backend/langexec"
	"github.com/rizome-dev/next-rc/internal/core"
)

var supportedLanguages = map[core.Language]bool{
	core.LanguageC:    true,
	core.LanguageCpp:  true,
	core.LanguageRust: true,
	core.LanguageGo:   true,
	core.LanguageWasm: true,
}

// Backend implements the Runtime Back-End Contract (C1) for Ebpf.
type Backend struct {
	bk        *basekit.Bookkeeping
	mu        sync.Mutex
	warm      bool
	demoMode  bool // true when real BPF attach is unavailable on this host
}

// New creates an Ebpf reference back-end.
func New() *Backend {
	return &Backend{bk: basekit.NewBookkeeping()}
}

func (b *Backend) Kind() core.RuntimeKind             { return core.RuntimeEbpf }
func (b *Backend) Languages() map[core.Language]bool { return supportedLanguages }
func (b *Backend) SupportsAll() bool                  { return false }

func (b *Backend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := rlimit.RemoveMemlock(); err != nil {
		// No real BPF attach capability on this host/container — continue
		// in demo mode rather than failing initialize, same as the
		// teacher's SandboxExecutor.
		b.demoMode = true
	}
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
	s.Kind = core.RuntimeEbpf
	s.Available = b.warm
	return s
}

func (b *Backend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	if !supportedLanguages[language] {
		return "", core.NewError(core.ErrUnsupportedLanguage, fmt.Sprintf("ebpf backend does not support %s", language))
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
	id := basekit.NewInstanceID()
	b.bk.StoreInstance(id, module)
	return id, nil
}

// Execute runs the filter in the verified-filter simulator (demo mode)
// or, where a real BPF attach succeeded, would dispatch to the attached
// program instead — that dispatch path is not implemented in this
// build; every Execute currently goes through the simulator.
func (b *Backend) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error) {
	code, _, ok := b.bk.InstanceModule(instance)
	if !ok {
		return core.ExecutionResult{}, core.NewError(core.ErrInstanceNotFound, string(instance))
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value, err := langexec.Run(execCtx, code)
	elapsed := time.Since(start)

	if err == langexec.ErrTimeout {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: "execution timed out", ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeEbpf},
			core.NewError(core.ErrTimeout, "ebpf execution exceeded timeout_ms")
	}
	if err != nil {
		b.bk.RecordExecution(false, elapsed)
		return core.ExecutionResult{Success: false, Error: err.Error(), ExecutionTimeMs: elapsed.Milliseconds(), Runtime: core.RuntimeEbpf},
			core.Wrap(core.ErrExecution, err)
	}

	b.bk.RecordExecution(true, elapsed)
	return core.ExecutionResult{
		Success:         true,
		Output:          []byte(fmt.Sprintf("%d", value)),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Runtime:         core.RuntimeEbpf,
	}, nil
}

func (b *Backend) Destroy(ctx context.Context, instance core.InstanceID) error {
	if !b.bk.RemoveInstance(instance) {
		return core.NewError(core.ErrInstanceNotFound, string(instance))
	}
	return nil
}
