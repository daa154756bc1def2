// Package firecracker is a declare-only back-end standing in for a real
// Firecracker microVM jailer. It participates fully in the selector's
// scoring (declared memory ceiling, nominal cold-start rank) so
// IoIntensive/MemoryIntensive routing is exercised end-to-end, but
// compile/execute return a clear "not installed in this build" error —
// wiring a real jailer process (spawning firecracker with a jailer
// config, a vsock-based guest agent) is out of scope for this module's
// in-process test surface.
package firecracker

import (
	"context"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Backend is a declare-only stand-in for a real Firecracker jailer.
type Backend struct {
	warm bool
}

// New creates a Firecracker declare-only back-end.
func New() *Backend { return &Backend{} }

func (b *Backend) Kind() core.RuntimeKind             { return core.RuntimeFirecracker }
func (b *Backend) Languages() map[core.Language]bool { return nil }
func (b *Backend) SupportsAll() bool                  { return true }

func (b *Backend) Initialize(ctx context.Context) error {
	b.warm = true
	return nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	b.warm = false
	return nil
}

func (b *Backend) Status() core.BackendStatus {
	return core.BackendStatus{Kind: core.RuntimeFirecracker, Available: b.warm}
}

func (b *Backend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	return "", core.NewError(core.ErrCompilation, "firecracker backend not installed in this build")
}

func (b *Backend) Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error) {
	return "", core.NewError(core.ErrModuleNotFound, "firecracker backend not installed in this build")
}

func (b *Backend) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error) {
	return core.ExecutionResult{}, core.NewError(core.ErrExecution, "firecracker backend not installed in this build")
}

func (b *Backend) Destroy(ctx context.Context, instance core.InstanceID) error {
	return core.NewError(core.ErrInstanceNotFound, "firecracker backend not installed in this build")
}
