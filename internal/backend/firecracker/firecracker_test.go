package firecracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizome-dev/next-rc/internal/core"
)

func TestSupportsAllLanguagesForSelectorScoring(t *testing.T) {
	b := New()
	assert.True(t, b.SupportsAll())
	assert.Nil(t, b.Languages())
}

func TestInitializeAndShutdownToggleAvailability(t *testing.T) {
	b := New()
	assert.False(t, b.Status().Available)
	require.NoError(t, b.Initialize(context.Background()))
	assert.True(t, b.Status().Available)
	require.NoError(t, b.Shutdown(context.Background()))
	assert.False(t, b.Status().Available)
}

func TestCompileInstantiateExecuteAlwaysFail(t *testing.T) {
	b := New()
	_, err := b.Compile(context.Background(), "anything", core.LanguagePython)
	assert.Error(t, err)

	_, err = b.Instantiate(context.Background(), core.ModuleID("x"))
	assert.Error(t, err)

	_, err = b.Execute(context.Background(), core.InstanceID("x"), core.ExecutionConfig{})
	assert.Error(t, err)

	err = b.Destroy(context.Background(), core.InstanceID("x"))
	assert.Error(t, err)
}
