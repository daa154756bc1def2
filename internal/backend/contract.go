// Package backend defines the Runtime Back-End Contract (C1) every
// execution engine implements, plus a read-only registry the scheduler
// and controller consult. Concrete back-ends live in the wasm, ebpf,
// v8isolate, python, and firecracker subpackages; this package only
// holds the shared interface and wiring, grounded on the
// initialize/compile/instantiate/execute/destroy/shutdown/status shape
// of other_examples' toolexec runtime.Backend contract.
package backend

import (
	"context"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Backend is the contract of spec.md §4.4. Every method is safe for
// concurrent use across distinct instances; a single instance's
// execute calls are sequential by construction (the controller never
// issues two concurrent executes against the same InstanceID).
type Backend interface {
	// Initialize prepares the back-end for use. Idempotent.
	Initialize(ctx context.Context) error

	// Compile turns source into a module. Fails with
	// ErrUnsupportedLanguage or ErrCompilation.
	Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error)

	// Instantiate creates a fresh execution instance from a compiled
	// module. Fails with ErrModuleNotFound or ErrInstantiation.
	Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error)

	// Execute runs an instantiated instance under config. Fails with
	// ErrInstanceNotFound, ErrExecution, ErrTimeout, or ErrMemoryLimit.
	Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error)

	// Destroy releases an instance's resources. Double-destroy fails
	// with ErrInstanceNotFound.
	Destroy(ctx context.Context, instance core.InstanceID) error

	// Shutdown stops accepting new work and releases all back-end-level
	// resources. Idempotent.
	Shutdown(ctx context.Context) error

	// Status reports bookkeeping counters for the metrics snapshot.
	Status() core.BackendStatus

	// Kind identifies which RuntimeKind this back-end implements.
	Kind() core.RuntimeKind

	// Languages returns the set of languages this back-end declares
	// support for. A back-end may also report SupportsAll() == true.
	Languages() map[core.Language]bool

	// SupportsAll reports whether this back-end accepts any language
	// (used by the "other" row of the static language mapping table).
	SupportsAll() bool
}

// PreWarmer is an optional extension a back-end may implement to
// pre-create idle evaluation contexts. Controllers that pre-warm rely on
// it only for latency, never for correctness, per spec.md §4.4.
type PreWarmer interface {
	PreWarm(ctx context.Context, n int) error
}

// ColdStartRank and MemoryCeilingBytes are carried per-Kind in the
// registry rather than on the interface, since they are declarative
// properties used only for scheduling, not behavior the back-end itself
// needs to know about.
var nominalColdStartRank = map[core.RuntimeKind]int{
	core.RuntimeEbpf:        0,
	core.RuntimeWasm:        1,
	core.RuntimeV8Isolate:   2,
	core.RuntimePython:      3,
	core.RuntimeFirecracker: 4,
}

var nominalMemoryCeiling = map[core.RuntimeKind]int64{
	core.RuntimeEbpf:        1 * 1024 * 1024,
	core.RuntimeWasm:        256 * 1024 * 1024,
	core.RuntimeV8Isolate:   512 * 1024 * 1024,
	core.RuntimePython:      512 * 1024 * 1024,
	core.RuntimeFirecracker: 8 * 1024 * 1024 * 1024,
}
