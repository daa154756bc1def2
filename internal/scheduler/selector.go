// Package scheduler implements the Runtime Selector (C8): the scored,
// precedence-ordered decision procedure of spec.md §4.2.2 that turns a
// WorkloadProfile into a concrete RuntimeKind. Grounded on the teacher's
// internal/monitoring running-average accounting, adapted from wall-clock
// request metrics to per-runtime success/latency accounting.
package scheduler

import (
	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/history"
)

// HistoryWeight is the 0.7/0.3 success_rate/latency split of spec.md
// §4.2.2 rule 1, exposed as a field so a caller can re-weight it — the
// Open Question on historical override vs. profile table is resolved by
// keeping the source's fixed split as the default and letting this be the
// documented extension point.
type HistoryWeight struct {
	Success float64
	Latency float64
}

// DefaultHistoryWeight matches spec.md §4.2.2 rule 1 exactly.
var DefaultHistoryWeight = HistoryWeight{Success: 0.7, Latency: 0.3}

// overrideThreshold is the score a runtime must exceed for the historical
// override (rule 1) to fire.
const overrideThreshold = 0.8

// profileMapping is the deterministic table of spec.md §4.2.2 rule 2.
// memoryOverrideBytes, when non-zero, is the memory_hint threshold past
// which the primary choice is replaced by the alternate.
type profileRoute struct {
	primary             core.RuntimeKind
	primaryConfidence   float64
	memoryOverrideBytes int64
	alternate           core.RuntimeKind
	alternateConfidence float64
}

var profileMapping = map[core.WorkloadProfile]profileRoute{
	core.ProfileSimpleFilter:    {primary: core.RuntimeEbpf, primaryConfidence: 0.95},
	core.ProfileShortCompute:    {primary: core.RuntimeWasm, primaryConfidence: 0.90},
	core.ProfileJavaScript:      {primary: core.RuntimeV8Isolate, primaryConfidence: 0.95},
	core.ProfileHeavyCompute:    {primary: core.RuntimeWasm, primaryConfidence: 0.80, memoryOverrideBytes: 128 * 1024 * 1024, alternate: core.RuntimeFirecracker, alternateConfidence: 0.85},
	core.ProfileUntrusted:       {primary: core.RuntimeWasm, primaryConfidence: 0.80, memoryOverrideBytes: 128 * 1024 * 1024, alternate: core.RuntimeFirecracker, alternateConfidence: 0.85},
	core.ProfileIOIntensive:     {primary: core.RuntimeFirecracker, primaryConfidence: 0.90},
}

// memoryIntensiveThreshold is spec.md §4.2.2's MemoryIntensive override
// point: above this, Firecracker is chosen directly; below it, the
// profile mapping step defers to latency class.
const memoryIntensiveThreshold = 512 * 1024 * 1024

// coldStartOrder ranks back-ends by nominal cold-start latency, used only
// for the language-compatibility tie-break (rule 4) — never for
// contractual timing guarantees.
var coldStartOrder = map[core.RuntimeKind]int{
	core.RuntimeEbpf:        0,
	core.RuntimeWasm:        1,
	core.RuntimeV8Isolate:   2,
	core.RuntimePython:      3,
	core.RuntimeFirecracker: 4,
}

// Selector implements the five-step decision precedence of spec.md
// §4.2.2.
type Selector struct {
	Weight HistoryWeight
}

// NewSelector creates a Selector using the spec's default history
// weighting.
func NewSelector() *Selector {
	return &Selector{Weight: DefaultHistoryWeight}
}

// Select chooses a back-end. runtimes describes the currently registered
// back-ends; only entries with Available == true may be returned, and
// any candidate whose MemoryCeilingBytes is below memoryLimit is
// rejected outright, per spec.md §4.2.2's final paragraph.
func (s *Selector) Select(
	profile core.WorkloadProfile,
	task core.Task,
	shapeKey string,
	memoryLimit int64,
	hist *history.History,
	runtimes map[core.RuntimeKind]core.RuntimeInfo,
) (core.SchedulingDecision, error) {
	fits := func(kind core.RuntimeKind) bool {
		info, ok := runtimes[kind]
		if !ok || !info.Available {
			return false
		}
		if memoryLimit > 0 && info.MemoryCeilingBytes > 0 && info.MemoryCeilingBytes < memoryLimit {
			return false
		}
		return true
	}
	supportsLanguage := func(info core.RuntimeInfo, lang core.Language) bool {
		return info.SupportsAllLanguages || info.SupportedLanguages[lang]
	}

	// 1. Historical override.
	if hist != nil {
		stats := hist.StatsByRuntime(shapeKey)
		best := core.RuntimeKind("")
		bestScore := 0.0
		for kind, stat := range stats {
			if stat.Count == 0 || !fits(kind) {
				continue
			}
			score := s.Weight.Success*stat.SuccessRate() + s.Weight.Latency*(1/(1+stat.AvgTotalMs()/1000))
			if score > bestScore {
				bestScore = score
				best = kind
			}
		}
		if best != "" && bestScore > overrideThreshold {
			return core.SchedulingDecision{Runtime: best, Reason: "historical override", Confidence: bestScore}, nil
		}
	}

	// 2. Profile mapping.
	if profile == core.ProfileMemoryIntensive {
		if task.MemoryHintBytes > memoryIntensiveThreshold && fits(core.RuntimeFirecracker) {
			return core.SchedulingDecision{Runtime: core.RuntimeFirecracker, Reason: "profile mapping: memory_intensive", Confidence: 0.95}, nil
		}
		// else defer to latency class, per spec.md §4.2.2 rule 2.
	} else if route, ok := profileMapping[profile]; ok {
		if route.memoryOverrideBytes > 0 && task.MemoryHintBytes > route.memoryOverrideBytes && fits(route.alternate) {
			return core.SchedulingDecision{Runtime: route.alternate, Reason: "profile mapping: memory override", Confidence: route.alternateConfidence}, nil
		}
		if fits(route.primary) {
			return core.SchedulingDecision{Runtime: route.primary, Reason: "profile mapping", Confidence: route.primaryConfidence}, nil
		}
	}

	// 3. Latency class.
	switch task.LatencyClass {
	case core.LatencyUltraLow:
		if fits(core.RuntimeEbpf) {
			return core.SchedulingDecision{Runtime: core.RuntimeEbpf, Reason: "latency class: ultra-low", Confidence: 0.90}, nil
		}
	case core.LatencyLow:
		if fits(core.RuntimeWasm) {
			return core.SchedulingDecision{Runtime: core.RuntimeWasm, Reason: "latency class: low", Confidence: 0.85}, nil
		}
	case core.LatencyNormal:
		if (task.Language == core.LanguageJavaScript || task.Language == core.LanguageTypeScript) && fits(core.RuntimeV8Isolate) {
			return core.SchedulingDecision{Runtime: core.RuntimeV8Isolate, Reason: "latency class: normal + js/ts", Confidence: 0.80}, nil
		}
	case core.LatencyRelaxed:
		// defer to next rule.
	}

	// 4. Language compatibility: lowest cold-start rank among back-ends
	// that declare support for task.Language (or declare "all").
	bestKind := core.RuntimeKind("")
	bestRank := int(^uint(0) >> 1)
	for kind, info := range runtimes {
		if !fits(kind) || !supportsLanguage(info, task.Language) {
			continue
		}
		rank := coldStartOrder[kind]
		if bestKind == "" || rank < bestRank {
			bestKind = kind
			bestRank = rank
		}
	}
	if bestKind != "" {
		return core.SchedulingDecision{Runtime: bestKind, Reason: "language compatibility", Confidence: 0.6}, nil
	}

	// 5. Default fallback.
	if fits(core.RuntimeWasm) {
		return core.SchedulingDecision{Runtime: core.RuntimeWasm, Reason: "default fallback", Confidence: 0.5}, nil
	}

	return core.SchedulingDecision{}, core.NewError(core.ErrNoRuntimeAvailable, "no available back-end satisfies the task's constraints").
		WithDetails(map[string]any{"profile": profile, "language": task.Language, "latency_class": task.LatencyClass})
}
