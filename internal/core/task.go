// Package core holds the immutable value types shared by every other
// package in the controller: tasks, execution configuration, permissions,
// results, and the runtime/profile enums the scheduler and back-ends agree
// on.
package core

import "time"

// Language is a source language the controller can be asked to compile.
type Language string

const (
	LanguageRust       Language = "rust"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageWasm       Language = "wasm"
)

// LatencyClass biases the scheduler toward faster, more restrictive
// back-ends.
type LatencyClass string

const (
	LatencyUltraLow LatencyClass = "ultra-low"
	LatencyLow      LatencyClass = "low"
	LatencyNormal   LatencyClass = "normal"
	LatencyRelaxed  LatencyClass = "relaxed"
)

// Complexity is a caller-declared hint about the shape of the code.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// CPUClass is a caller-declared hint about expected CPU demand.
type CPUClass string

const (
	CPUClassLow    CPUClass = "low"
	CPUClassMedium CPUClass = "medium"
	CPUClassHigh   CPUClass = "high"
)

// Task is the immutable unit of work handed to the controller. Callers
// build one per compile/schedule request; nothing in this package mutates
// a Task after construction.
type Task struct {
	Code              string
	Language          Language
	ExpectedDurationMs int
	LatencyClass      LatencyClass
	Complexity        Complexity
	MemoryHintBytes   int64
	CPUClass          CPUClass
	IOHint            bool
}

// Capability is a named permission controlling a class of side effects.
type Capability string

const (
	CapabilityNetworkAccess        Capability = "network_access"
	CapabilityFileSystemRead       Capability = "filesystem_read"
	CapabilityFileSystemWrite      Capability = "filesystem_write"
	CapabilityProcessSpawn         Capability = "process_spawn"
	CapabilitySystemTime           Capability = "system_time"
	CapabilityEnvironmentVariables Capability = "environment_variables"
	CapabilitySharedMemory         Capability = "shared_memory"
	CapabilityCPUIntensive         Capability = "cpu_intensive"
	CapabilityGPUAccess            Capability = "gpu_access"
)

// TrustLevel is a coarse policy tier selecting default capabilities,
// sandbox strictness, and process cordon.
type TrustLevel string

const (
	TrustLow    TrustLevel = "low"
	TrustMedium TrustLevel = "medium"
	TrustHigh   TrustLevel = "high"
)

// maxAllowedByTrust defines MaxAllowedFor(trust_level) from spec.md §3.
var maxAllowedByTrust = map[TrustLevel]map[Capability]bool{
	TrustLow: {
		CapabilitySystemTime:           true,
		CapabilityEnvironmentVariables: true,
		CapabilityCPUIntensive:         true,
	},
	TrustMedium: {
		CapabilityNetworkAccess:        true,
		CapabilityFileSystemRead:       true,
		CapabilitySystemTime:           true,
		CapabilityEnvironmentVariables: true,
		CapabilitySharedMemory:         true,
		CapabilityCPUIntensive:         true,
	},
	TrustHigh: {
		CapabilityNetworkAccess:        true,
		CapabilityFileSystemRead:       true,
		CapabilityFileSystemWrite:      true,
		CapabilityProcessSpawn:         true,
		CapabilitySystemTime:           true,
		CapabilityEnvironmentVariables: true,
		CapabilitySharedMemory:         true,
		CapabilityCPUIntensive:         true,
		CapabilityGPUAccess:            true,
	},
}

// MaxAllowedFor returns the capability ceiling for a trust level.
func MaxAllowedFor(level TrustLevel) map[Capability]bool {
	return maxAllowedByTrust[level]
}

// Permissions is the capability set and trust level a caller declares for
// a task.
type Permissions struct {
	Capabilities map[Capability]bool
	TrustLevel   TrustLevel
}

// Has reports whether the capability set contains cap.
func (p Permissions) Has(cap Capability) bool {
	return p.Capabilities[cap]
}

// ExceedsTrustCeiling returns the declared capabilities that lie outside
// MaxAllowedFor(p.TrustLevel) — the invariant the controller may refuse,
// per spec.md §3. An empty result means none do.
func (p Permissions) ExceedsTrustCeiling() []Capability {
	ceiling := MaxAllowedFor(p.TrustLevel)
	var violations []Capability
	for c, want := range p.Capabilities {
		if !want {
			continue
		}
		if !ceiling[c] {
			violations = append(violations, c)
		}
	}
	return violations
}

// ExecutionConfig bounds a single execute call.
type ExecutionConfig struct {
	TimeoutMs        int
	MemoryLimitBytes int64
	Permissions      Permissions
}

// RuntimeKind identifies a concrete execution back-end.
type RuntimeKind string

const (
	RuntimeWasm        RuntimeKind = "wasm"
	RuntimeEbpf        RuntimeKind = "ebpf"
	RuntimeV8Isolate   RuntimeKind = "v8isolate"
	RuntimePython      RuntimeKind = "python"
	RuntimeFirecracker RuntimeKind = "firecracker"
)

// ExecutionResult is the outcome of one execute call.
type ExecutionResult struct {
	Success         bool
	Output          []byte
	Error           string
	ExecutionTimeMs int64
	MemoryUsedBytes int64
	Runtime         RuntimeKind
}

// ModuleID and InstanceID are opaque, back-end-generated identifiers,
// globally unique within a controller lifetime.
type ModuleID string
type InstanceID string

// WorkloadProfile is the heuristic classification produced by the
// profiler (C7) and consumed by the selector (C8).
type WorkloadProfile string

const (
	ProfileSimpleFilter     WorkloadProfile = "simple_filter"
	ProfileShortCompute     WorkloadProfile = "short_compute"
	ProfileJavaScript       WorkloadProfile = "javascript"
	ProfileHeavyCompute     WorkloadProfile = "heavy_compute"
	ProfileUntrusted        WorkloadProfile = "untrusted"
	ProfileIOIntensive      WorkloadProfile = "io_intensive"
	ProfileMemoryIntensive  WorkloadProfile = "memory_intensive"
)

// SchedulingDecision is the output of the runtime selector (C8).
type SchedulingDecision struct {
	Runtime    RuntimeKind
	Reason     string
	Confidence float64
}

// SecurityContext is the per-execution security handle assembled by the
// Security Coordinator (C6). Its lifecycle is strictly scoped to a single
// execute call.
type SecurityContext struct {
	TrustLevel       TrustLevel
	Permissions      Permissions
	ProcessID        string
	NamespaceHandles map[string]bool
	SyscallProfileID string
}

// HistoryEntry is one outcome recorded into the execution history ring
// (C9).
type HistoryEntry struct {
	TaskShapeKey    string
	Runtime         RuntimeKind
	Success         bool
	ExecutionTimeMs int64
	TotalTimeMs     int64
	MemoryUsedBytes int64
	Timestamp       time.Time
}

// AuditEntry is one capability-check outcome recorded into the audit ring
// (C3).
type AuditEntry struct {
	Capability Capability
	Granted    bool
	Timestamp  time.Time
	TrustLevel TrustLevel
	Detail     string
}

// RuntimeInfo is what the selector (C8) needs to know about one back-end
// to rank and filter it: whether it is currently available, what
// languages it declares support for (a back-end declaring LanguageAll
// support matches any Task.Language), its nominal cold-start rank used
// only for ordering (lower sorts first), and its nominal memory ceiling
// used to reject runtimes too small for the execution's memory limit.
type RuntimeInfo struct {
	Kind                 RuntimeKind
	Available            bool
	SupportedLanguages   map[Language]bool
	SupportsAllLanguages bool
	ColdStartRank        int
	MemoryCeilingBytes   int64
}

// LanguageAll is a sentinel a back-end can use internally to mean "any
// language" — RuntimeInfo.SupportsAllLanguages is the field callers
// should actually check.
const LanguageAll Language = "*"

// BackendStatus is a snapshot of one back-end's bookkeeping, returned by
// the contract's status() call (§4.4) and surfaced in the metrics
// snapshot (§6).
type BackendStatus struct {
	Kind            RuntimeKind
	CompiledModules int
	LiveInstances   int
	TotalExecutions int64
	TotalFailures   int64
	AvgExecutionMs  float64
	Available       bool
}
