package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizome-dev/next-rc/internal/core"
)

// fakeBackend is a minimal Backend double for registry-level tests that
// don't need a real compile/execute pipeline.
type fakeBackend struct {
	kind        core.RuntimeKind
	languages   map[core.Language]bool
	supportsAll bool
	available   bool
}

func (f *fakeBackend) Initialize(ctx context.Context) error { f.available = true; return nil }
func (f *fakeBackend) Compile(ctx context.Context, code string, language core.Language) (core.ModuleID, error) {
	return core.ModuleID("m"), nil
}
func (f *fakeBackend) Instantiate(ctx context.Context, module core.ModuleID) (core.InstanceID, error) {
	return core.InstanceID("i"), nil
}
func (f *fakeBackend) Execute(ctx context.Context, instance core.InstanceID, cfg core.ExecutionConfig) (core.ExecutionResult, error) {
	return core.ExecutionResult{Success: true, Runtime: f.kind}, nil
}
func (f *fakeBackend) Destroy(ctx context.Context, instance core.InstanceID) error { return nil }
func (f *fakeBackend) Shutdown(ctx context.Context) error                         { f.available = false; return nil }
func (f *fakeBackend) Status() core.BackendStatus {
	return core.BackendStatus{Kind: f.kind, Available: f.available}
}
func (f *fakeBackend) Kind() core.RuntimeKind             { return f.kind }
func (f *fakeBackend) Languages() map[core.Language]bool { return f.languages }
func (f *fakeBackend) SupportsAll() bool                  { return f.supportsAll }

func TestRegistryGetAndAll(t *testing.T) {
	r := NewRegistry()
	b := &fakeBackend{kind: core.RuntimeWasm, available: true}
	r.Register(b)

	got, ok := r.Get(core.RuntimeWasm)
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.Len(t, r.All(), 1)

	_, ok = r.Get(core.RuntimeEbpf)
	assert.False(t, ok)
}

func TestRegistryRuntimeInfosReflectsAvailability(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeBackend{kind: core.RuntimeWasm, available: true, languages: map[core.Language]bool{core.LanguageGo: true}})
	r.Register(&fakeBackend{kind: core.RuntimeEbpf, available: false})

	infos := r.RuntimeInfos()
	assert.True(t, infos[core.RuntimeWasm].Available)
	assert.False(t, infos[core.RuntimeEbpf].Available)
	assert.True(t, infos[core.RuntimeWasm].SupportedLanguages[core.LanguageGo])
}

func TestRegistryDefaultBackendForPrefersFirstAvailableInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeBackend{kind: core.RuntimeWasm, available: false})
	r.Register(&fakeBackend{kind: core.RuntimeV8Isolate, available: true})

	b, ok := r.DefaultBackendFor(core.LanguageRust)
	require.True(t, ok)
	assert.Equal(t, core.RuntimeV8Isolate, b.Kind(), "wasm is unavailable, so the next entry in preference order wins")
}

func TestRegistryDefaultBackendForUnknownLanguageUsesFallbackOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeBackend{kind: core.RuntimePython, available: true})

	b, ok := r.DefaultBackendFor(core.Language("cobol"))
	require.True(t, ok)
	assert.Equal(t, core.RuntimePython, b.Kind())
}

func TestRegistryDefaultBackendForNoneAvailable(t *testing.T) {
	r := NewRegistry()
	_, ok := r.DefaultBackendFor(core.LanguageGo)
	assert.False(t, ok)
}

func TestRegistryInitializeAllAndShutdownAll(t *testing.T) {
	r := NewRegistry()
	b1 := &fakeBackend{kind: core.RuntimeWasm}
	b2 := &fakeBackend{kind: core.RuntimeEbpf}
	r.Register(b1)
	r.Register(b2)

	require.NoError(t, r.InitializeAll(context.Background()))
	assert.True(t, b1.available)
	assert.True(t, b2.available)

	require.NoError(t, r.ShutdownAll(context.Background()))
	assert.False(t, b1.available)
	assert.False(t, b2.available)
}
