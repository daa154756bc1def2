// Package profiler implements the Workload Profiler (C7): a purely
// lexical classifier that never executes the code it inspects. The
// patterns are package-level token lists and compiled regexps consulted
// by a fixed chain of rules in Classify; they are not held in a
// (pattern, effect) table, so adding a pattern or changing its effect
// means editing this file.
package profiler

import (
	"regexp"
	"strings"

	"github.com/rizome-dev/next-rc/internal/core"
)

const memoryByteThreshold = 256 * 1024 * 1024 // 256 MiB, spec.md §4.2.1 rule 4
const largeLiteralThreshold = 10000
const repeatedAppendThreshold = 10
const largeIntegerThreshold = 1_000_000

var ioTokens = []string{
	"fetch(", "http", "request", "readfile", "writefile", "fs.",
	"database", "query", "sql", "socket", "websocket", "stream", "pipe",
	".get(", ".post(", ".put(", ".delete(", ".find(", ".save(", ".update(",
	"await get", "await post", "await put", "await delete", "await find",
	"await save", "await update",
}

var memoryTokens = []string{
	"buffer", "blob", "arraybuffer", "image", "video", "audio",
	"matrix", "tensor",
}

var complexLoopTokens = []string{"matrix", "multiply", "dot product"}

// filterPattern matches a small function body that returns a small
// constant guarded by a condition on an argument, referencing
// packet/data/buffer/port/protocol tokens.
var filterPattern = regexp.MustCompile(`(?s)(packet|data|buffer|port|protocol).{0,200}?return\s+(0|1|true|false)`)

var nestedLoopPattern = regexp.MustCompile(`(?s)(for|while)\s*\([^)]*\)\s*\{[^{}]*(for|while)\s*\(`)
var largeIntegerPattern = regexp.MustCompile(`\b[0-9]{7,}\b`)
var largeArrayLiteralPattern = regexp.MustCompile(`new\s+array\s*\(\s*([0-9]+)\s*\)`)

// Profiler classifies tasks into a WorkloadProfile by precedence.
type Profiler struct{}

// New creates a Profiler. It holds no state; all rules are stateless
// functions of the lowercased code and task hints.
func New() *Profiler {
	return &Profiler{}
}

// Classify implements the precedence table of spec.md §4.2.1: first match
// wins.
func (p *Profiler) Classify(t core.Task) core.WorkloadProfile {
	lower := strings.ToLower(t.Code)

	// 1. ultra-low + FilterPattern -> SimpleFilter
	if t.LatencyClass == core.LatencyUltraLow && matchesFilterPattern(lower) {
		return core.ProfileSimpleFilter
	}

	// 2. ultra-low -> ShortCompute
	if t.LatencyClass == core.LatencyUltraLow {
		return core.ProfileShortCompute
	}

	// 3. IO patterns or io_hint -> IoIntensive
	if t.IOHint || matchesIOPattern(lower) {
		return core.ProfileIOIntensive
	}

	// 4. memory-heavy patterns or memory_hint > 256MiB -> MemoryIntensive
	if t.MemoryHintBytes > memoryByteThreshold || matchesMemoryPattern(lower) {
		return core.ProfileMemoryIntensive
	}

	// 5. complex / complex loops / cpu_class high -> HeavyCompute
	if t.Complexity == core.ComplexityComplex || t.CPUClass == core.CPUClassHigh || matchesComplexLoopPattern(lower) {
		return core.ProfileHeavyCompute
	}

	// 6. expected_duration_ms < 1 -> ShortCompute. ExpectedDurationMs is
	// an int whose zero value means "unset", so no value passes this
	// check and the rule never fires.
	if t.ExpectedDurationMs > 0 && t.ExpectedDurationMs < 1 {
		return core.ProfileShortCompute
	}

	// 7. JS/TS -> JavaScript
	if t.Language == core.LanguageJavaScript || t.Language == core.LanguageTypeScript {
		return core.ProfileJavaScript
	}

	// 8. default -> HeavyCompute (conservative)
	return core.ProfileHeavyCompute
}

func matchesFilterPattern(lower string) bool {
	if !filterPattern.MatchString(lower) {
		return false
	}
	if nestedLoopPattern.MatchString(lower) {
		return false
	}
	if matchesMemoryPattern(lower) {
		return false
	}
	return true
}

func matchesIOPattern(lower string) bool {
	for _, tok := range ioTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func matchesMemoryPattern(lower string) bool {
	if m := largeArrayLiteralPattern.FindStringSubmatch(lower); m != nil {
		if parseIntSafe(m[1]) >= largeLiteralThreshold {
			return true
		}
	}
	if strings.Count(lower, ".append(") > repeatedAppendThreshold ||
		strings.Count(lower, ".push(") > repeatedAppendThreshold {
		return true
	}
	for _, tok := range memoryTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	if m := largeIntegerPattern.FindString(lower); m != "" && parseIntSafe(m) >= largeIntegerThreshold {
		return true
	}
	return false
}

// matchesComplexLoopPattern implements the ComplexLoopPattern signal of
// spec.md §4.2.1: nested loops and the domain token list. Spec.md also
// lists "self-referential function body" as part of that pattern, but a
// plain recursive function (e.g. textbook fib(n) = fib(n-1)+fib(n-2),
// including when wrapped in an outer declaration the way the JavaScript
// scenario of spec.md §8 wraps it) must stay HeavyCompute-negative so it
// can still reach the JavaScript profile — recursion alone is too weak a
// signal to distinguish "basic recursive function" from "pathologically
// expensive workload", so this implementation omits it and relies on
// nested loops and the explicit token list instead.
func matchesComplexLoopPattern(lower string) bool {
	if nestedLoopPattern.MatchString(lower) {
		return true
	}
	for _, tok := range complexLoopTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func parseIntSafe(s string) int64 {
	var v int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return v
		}
		v = v*10 + int64(c-'0')
	}
	return v
}
