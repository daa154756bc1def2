package backend

import (
	"context"
	"sync"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Registry is the RuntimeRegistry of spec.md §5: populated at init,
// read-only after. It also exposes the live RuntimeInfo view the
// scheduler's selector consumes.
type Registry struct {
	mu       sync.RWMutex
	backends map[core.RuntimeKind]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[core.RuntimeKind]Backend)}
}

// Register adds a back-end. Intended to be called only during startup,
// before any Select/Get call — the map is never mutated concurrently
// with reads in normal operation.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Kind()] = b
}

// Get returns a registered back-end by kind.
func (r *Registry) Get(kind core.RuntimeKind) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[kind]
	return b, ok
}

// All returns every registered back-end.
func (r *Registry) All() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	return out
}

// RuntimeInfos builds the core.RuntimeInfo view the selector needs,
// treating a back-end as available iff its Status().Available is true.
func (r *Registry) RuntimeInfos() map[core.RuntimeKind]core.RuntimeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[core.RuntimeKind]core.RuntimeInfo, len(r.backends))
	for kind, b := range r.backends {
		out[kind] = core.RuntimeInfo{
			Kind:                 kind,
			Available:            b.Status().Available,
			SupportedLanguages:   b.Languages(),
			SupportsAllLanguages: b.SupportsAll(),
			ColdStartRank:        nominalColdStartRank[kind],
			MemoryCeilingBytes:   nominalMemoryCeiling[kind],
		}
	}
	return out
}

// InitializeAll calls Initialize on every registered back-end.
func (r *Registry) InitializeAll(ctx context.Context) error {
	for _, b := range r.All() {
		if err := b.Initialize(ctx); err != nil {
			return core.Wrap(core.ErrSandboxSetup, err).WithDetails(string(b.Kind()))
		}
	}
	return nil
}

// ShutdownAll calls Shutdown on every registered back-end, collecting
// (rather than short-circuiting on) the first error so every back-end
// gets a chance to release its resources.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var first error
	for _, b := range r.All() {
		if err := b.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// staticLanguageMapping is the default language -> preference-ordered
// back-end list of spec.md §4.4, used by compile() when the caller
// doesn't go through the scheduler.
var staticLanguageMapping = map[core.Language][]core.RuntimeKind{
	core.LanguageJavaScript: {core.RuntimeV8Isolate},
	core.LanguageTypeScript: {core.RuntimeV8Isolate},
	core.LanguagePython:     {core.RuntimePython, core.RuntimeWasm, core.RuntimeV8Isolate},
	core.LanguageRust:       {core.RuntimeWasm, core.RuntimeV8Isolate},
	core.LanguageC:          {core.RuntimeWasm, core.RuntimeV8Isolate},
	core.LanguageCpp:        {core.RuntimeWasm, core.RuntimeV8Isolate},
	core.LanguageGo:         {core.RuntimeWasm, core.RuntimeV8Isolate},
	core.LanguageWasm:       {core.RuntimeWasm, core.RuntimeV8Isolate},
}

// otherLanguageMapping is used for any language not present in
// staticLanguageMapping.
var otherLanguageMapping = []core.RuntimeKind{
	core.RuntimeV8Isolate, core.RuntimeWasm, core.RuntimePython, core.RuntimeFirecracker,
}

// DefaultBackendFor resolves the static language -> back-end mapping
// table of spec.md §4.4, returning the first available, registered
// back-end in preference order.
func (r *Registry) DefaultBackendFor(language core.Language) (Backend, bool) {
	order, ok := staticLanguageMapping[language]
	if !ok {
		order = otherLanguageMapping
	}
	for _, kind := range order {
		if b, ok := r.Get(kind); ok && b.Status().Available {
			return b, true
		}
	}
	return nil, false
}
