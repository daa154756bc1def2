// Package python is a declare-only back-end: initialize/status and
// language declarations work, but compile/execute always fail with a
// clear "not installed in this build" error. This keeps the selector's
// decision table (language compatibility, availability fallthrough)
// exercised without requiring an embedded CPython at test time — the
// seam where a real embed (e.g. via cgo against libpython) would attach
// is documented on Backend.Compile.
package python

import (
	"context"

	"github.com/rizome-dev/next-rc/internal/core"
)

var supportedLanguages = map[core.Language]bool{core.LanguagePython: true}

// Backend is a declare-only stand-in for a real CPython/PyPy embed.
type Backend struct {
	warm bool
}

// New creates a Python declare-only back-end.
func New() *Backend { return &Backend{} }

func (b *Backend) Kind() core.RuntimeKind             { return core.RuntimePython }
func (b *Backend) Languages() map[core.Language]bool { return supportedLanguages }
func (b *Backend) SupportsAll() bool                  { return false }

func (b *Backend) Initialize(ctx context.Context) error {
	b.warm = true
	return nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	b.warm = false
	return nil
}

func (b *Backend) Status() core.BackendStatus {
	return core.BackendStatus{Kind: core.RuntimePython, Available: b.warm}
}

// Compile always fails: no CPython embed is wired into this build. A
// real implementation would compile via the interpreter's own bytecode
// compiler here.
func (b *Backend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	if !supportedLanguages[language] {
		return "", core.NewError(core.ErrUnsupportedLanguage, "python backend only accepts python")
	}
	return "", core.NewError(core.ErrCompilation, "python backend not installed in this build").WithRetriable(false)
}

func (b *Backend) Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error) {
	return "", core.NewError(core.ErrModuleNotFound, "python backend not installed in this build")
}

func (b *Backend) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error) {
	return core.ExecutionResult{}, core.NewError(core.ErrExecution, "python backend not installed in this build")
}

func (b *Backend) Destroy(ctx context.Context, instance core.InstanceID) error {
	return core.NewError(core.ErrInstanceNotFound, "python backend not installed in this build")
}
