// Package basekit is the bookkeeping every in-process reference
// back-end (wasm, v8isolate, ebpf) needs in common: module/instance
// registries keyed by opaque IDs, and the counters behind
// core.BackendStatus. It is deliberately small — it carries no
// execution logic, only the state the contract (C1) requires every
// back-end to track.
package basekit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Bookkeeping tracks compiled modules, live instances, and execution
// counters for one back-end.
type Bookkeeping struct {
	mu        sync.RWMutex
	modules   map[core.ModuleID]moduleEntry
	instances map[core.InstanceID]core.ModuleID

	executions int64
	failures   int64
	totalMs    int64
}

type moduleEntry struct {
	Code     string
	Language core.Language
}

// NewBookkeeping creates an empty registry.
func NewBookkeeping() *Bookkeeping {
	return &Bookkeeping{
		modules:   make(map[core.ModuleID]moduleEntry),
		instances: make(map[core.InstanceID]core.ModuleID),
	}
}

// NewModuleID mints a fresh opaque module identifier.
func NewModuleID() core.ModuleID { return core.ModuleID(uuid.NewString()) }

// NewInstanceID mints a fresh opaque instance identifier.
func NewInstanceID() core.InstanceID { return core.InstanceID(uuid.NewString()) }

// StoreModule registers a compiled module's source and declared
// language for later instantiate/execute calls.
func (b *Bookkeeping) StoreModule(id core.ModuleID, code string, lang core.Language) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modules[id] = moduleEntry{Code: code, Language: lang}
}

// Module looks up a module's source by ID.
func (b *Bookkeeping) Module(id core.ModuleID) (string, core.Language, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.modules[id]
	return m.Code, m.Language, ok
}

// StoreInstance records that instance belongs to module.
func (b *Bookkeeping) StoreInstance(instance core.InstanceID, module core.ModuleID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.instances[instance] = module
}

// InstanceModule resolves an instance back to its module's source.
func (b *Bookkeeping) InstanceModule(instance core.InstanceID) (string, core.Language, bool) {
	b.mu.RLock()
	moduleID, ok := b.instances[instance]
	b.mu.RUnlock()
	if !ok {
		return "", "", false
	}
	return b.Module(moduleID)
}

// RemoveInstance deletes an instance's bookkeeping. It reports whether
// the instance existed, so callers can return InstanceNotFound on
// double-destroy per spec.md §4.4.
func (b *Bookkeeping) RemoveInstance(instance core.InstanceID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.instances[instance]; !ok {
		return false
	}
	delete(b.instances, instance)
	return true
}

// RecordExecution updates the counters behind core.BackendStatus.
func (b *Bookkeeping) RecordExecution(success bool, duration time.Duration) {
	atomic.AddInt64(&b.executions, 1)
	if !success {
		atomic.AddInt64(&b.failures, 1)
	}
	atomic.AddInt64(&b.totalMs, duration.Milliseconds())
}

// Status builds the counts/averages portion of core.BackendStatus; the
// caller fills in Kind and Available.
func (b *Bookkeeping) Status() core.BackendStatus {
	b.mu.RLock()
	compiled := len(b.modules)
	live := len(b.instances)
	b.mu.RUnlock()

	execs := atomic.LoadInt64(&b.executions)
	fails := atomic.LoadInt64(&b.failures)
	totalMs := atomic.LoadInt64(&b.totalMs)

	var avg float64
	if execs > 0 {
		avg = float64(totalMs) / float64(execs)
	}

	return core.BackendStatus{
		CompiledModules: compiled,
		LiveInstances:   live,
		TotalExecutions: execs,
		TotalFailures:   fails,
		AvgExecutionMs:  avg,
	}
}
