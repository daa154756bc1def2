package basekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizome-dev/next-rc/internal/core"
)

func TestStoreAndLookupModule(t *testing.T) {
	bk := NewBookkeeping()
	id := NewModuleID()
	bk.StoreModule(id, "return 1;", core.LanguageGo)

	code, lang, ok := bk.Module(id)
	require.True(t, ok)
	assert.Equal(t, "return 1;", code)
	assert.Equal(t, core.LanguageGo, lang)
}

func TestModuleNotFound(t *testing.T) {
	bk := NewBookkeeping()
	_, _, ok := bk.Module(core.ModuleID("missing"))
	assert.False(t, ok)
}

func TestInstanceModuleResolvesThroughModule(t *testing.T) {
	bk := NewBookkeeping()
	moduleID := NewModuleID()
	bk.StoreModule(moduleID, "return 2;", core.LanguageRust)

	instanceID := NewInstanceID()
	bk.StoreInstance(instanceID, moduleID)

	code, lang, ok := bk.InstanceModule(instanceID)
	require.True(t, ok)
	assert.Equal(t, "return 2;", code)
	assert.Equal(t, core.LanguageRust, lang)
}

func TestRemoveInstanceReportsExistence(t *testing.T) {
	bk := NewBookkeeping()
	moduleID := NewModuleID()
	bk.StoreModule(moduleID, "return 3;", core.LanguageGo)
	instanceID := NewInstanceID()
	bk.StoreInstance(instanceID, moduleID)

	assert.True(t, bk.RemoveInstance(instanceID))
	assert.False(t, bk.RemoveInstance(instanceID), "double-destroy should report false")
}

func TestStatusCountsAndAverages(t *testing.T) {
	bk := NewBookkeeping()
	moduleID := NewModuleID()
	bk.StoreModule(moduleID, "return 4;", core.LanguageGo)
	instanceID := NewInstanceID()
	bk.StoreInstance(instanceID, moduleID)

	bk.RecordExecution(true, 10*time.Millisecond)
	bk.RecordExecution(false, 20*time.Millisecond)

	status := bk.Status()
	assert.Equal(t, 1, status.CompiledModules)
	assert.Equal(t, 1, status.LiveInstances)
	assert.Equal(t, int64(2), status.TotalExecutions)
	assert.Equal(t, int64(1), status.TotalFailures)
	assert.Equal(t, 15.0, status.AvgExecutionMs)
}

func TestStatusWithNoExecutionsHasZeroAverage(t *testing.T) {
	bk := NewBookkeeping()
	status := bk.Status()
	assert.Equal(t, 0.0, status.AvgExecutionMs)
}
