package wasm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizome-dev/next-rc/internal/core"
)

func TestNewAppliesDefaults(t *testing.T) {
	b := New(Config{}, 0)
	assert.Equal(t, "wazero", b.cfg.Runtime)
	assert.Equal(t, 4096, b.cfg.MaxMemoryPages)
	assert.NotNil(t, b.cfg.Client)
}

func TestCompileRejectsUnsupportedLanguage(t *testing.T) {
	b := New(Config{}, 0)
	_, err := b.Compile(context.Background(), "return 1;", core.LanguageJavaScript)
	assert.Error(t, err)
}

func TestFullLifecycleExecutesArithmetic(t *testing.T) {
	b := New(Config{}, 0)
	require.NoError(t, b.Initialize(context.Background()))

	mod, err := b.Compile(context.Background(), "return 2 + 3;", core.LanguageRust)
	require.NoError(t, err)

	inst, err := b.Instantiate(context.Background(), mod)
	require.NoError(t, err)

	res, err := b.Execute(context.Background(), inst, core.ExecutionConfig{TimeoutMs: 1000})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "5", string(res.Output))
	assert.Equal(t, core.RuntimeWasm, res.Runtime)

	require.NoError(t, b.Destroy(context.Background(), inst))
}

func TestDefaultTimeoutAppliesWhenUnset(t *testing.T) {
	b := New(Config{}, 0)
	mod, err := b.Compile(context.Background(), "return 1;", core.LanguageGo)
	require.NoError(t, err)
	inst, err := b.Instantiate(context.Background(), mod)
	require.NoError(t, err)

	res, err := b.Execute(context.Background(), inst, core.ExecutionConfig{})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestInstantiateUnknownModuleErrors(t *testing.T) {
	b := New(Config{}, 0)
	_, err := b.Instantiate(context.Background(), core.ModuleID("missing"))
	assert.Error(t, err)
}
