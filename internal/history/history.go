// Package history implements the Execution History (C9): a bounded
// per-task-shape ring of past outcomes consulted by the selector, plus a
// global ring for cross-task learning. Accounting style is adapted from
// the teacher's internal/monitoring running-average idiom.
package history

import (
	"hash/fnv"
	"sync"

	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/ring"
)

// PerKeyCapacity is the bounded ring size per task-shape key (spec.md §3).
const PerKeyCapacity = 100

// DefaultGlobalCapacity is the default cross-task ring size.
const DefaultGlobalCapacity = 1000

// ShapeKey computes task_shape_key = hash(language||code) || "-" ||
// complexity, using a 32-bit FNV-1a hash — spec.md §4.2.3 explicitly
// allows a simple rolling hash since collisions only broaden the learning
// class.
func ShapeKey(language core.Language, code string, complexity core.Complexity) string {
	h := fnv.New32a()
	h.Write([]byte(language))
	h.Write([]byte(code))
	sum := h.Sum32()
	return fnvHex(sum) + "-" + string(complexity)
}

func fnvHex(v uint32) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(b)
}

// RuntimeStats aggregates the entries for one runtime within a key, used
// to compute the selector's historical-override score.
type RuntimeStats struct {
	Count       int
	Successes   int
	TotalTimeMs int64
}

// SuccessRate returns Successes/Count, or 0 for an empty sample.
func (s RuntimeStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count)
}

// AvgTotalMs returns the mean total_time_ms, or 0 for an empty sample.
func (s RuntimeStats) AvgTotalMs() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalTimeMs) / float64(s.Count)
}

// History holds the per-task-shape rings and the global ring.
type History struct {
	mu       sync.Mutex
	byShape  map[string]*ring.Buffer[core.HistoryEntry]
	global   *ring.Buffer[core.HistoryEntry]
	capacity int
}

// New creates a History with the given global ring capacity.
func New(globalCapacity int) *History {
	if globalCapacity <= 0 {
		globalCapacity = DefaultGlobalCapacity
	}
	return &History{
		byShape:  make(map[string]*ring.Buffer[core.HistoryEntry]),
		global:   ring.New[core.HistoryEntry](globalCapacity),
		capacity: globalCapacity,
	}
}

// Record appends an outcome to both the per-shape ring and the global
// ring, regardless of success — spec.md §4.2.4 requires every execution,
// failed or not, to be recorded so the selector can learn.
func (h *History) Record(shapeKey string, entry core.HistoryEntry) {
	h.mu.Lock()
	buf, ok := h.byShape[shapeKey]
	if !ok {
		buf = ring.New[core.HistoryEntry](PerKeyCapacity)
		h.byShape[shapeKey] = buf
	}
	h.mu.Unlock()

	buf.Push(entry)
	h.global.Push(entry)
}

// ForShape returns the up-to-100 entries recorded for a task shape, oldest
// first.
func (h *History) ForShape(shapeKey string) []core.HistoryEntry {
	h.mu.Lock()
	buf, ok := h.byShape[shapeKey]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return buf.Snapshot()
}

// StatsByRuntime aggregates ForShape(shapeKey) per runtime.
func (h *History) StatsByRuntime(shapeKey string) map[core.RuntimeKind]RuntimeStats {
	entries := h.ForShape(shapeKey)
	out := make(map[core.RuntimeKind]RuntimeStats)
	for _, e := range entries {
		s := out[e.Runtime]
		s.Count++
		if e.Success {
			s.Successes++
		}
		s.TotalTimeMs += e.TotalTimeMs
		out[e.Runtime] = s
	}
	return out
}

// Global returns a snapshot of the cross-task ring, oldest first.
func (h *History) Global() []core.HistoryEntry {
	return h.global.Snapshot()
}
