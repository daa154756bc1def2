package scheduler

import (
	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/history"
	"github.com/rizome-dev/next-rc/internal/profiler"
)

// Scheduler orchestrates C7 (profiler) -> C9 (history lookup) -> C8
// (selector) per spec.md §4.2.4. It does not itself drive compile/
// instantiate/execute/destroy — that lifecycle belongs to the
// controller (C11), which calls Decide then records the outcome back
// via Record.
type Scheduler struct {
	profiler *profiler.Profiler
	selector *Selector
	history  *history.History
}

// New wires a Scheduler from its three collaborators.
func New(p *profiler.Profiler, s *Selector, h *history.History) *Scheduler {
	return &Scheduler{profiler: p, selector: s, history: h}
}

// Decision is the result of running C7 through C8: the profile that was
// assigned, the task-shape key used to consult C9, and the chosen
// back-end.
type Decision struct {
	Profile  core.WorkloadProfile
	ShapeKey string
	Choice   core.SchedulingDecision
}

// Decide runs the profiler, derives the task-shape key, and asks the
// selector to choose a back-end among the currently available runtimes.
func (s *Scheduler) Decide(task core.Task, memoryLimit int64, runtimes map[core.RuntimeKind]core.RuntimeInfo) (Decision, error) {
	profile := s.profiler.Classify(task)
	shapeKey := history.ShapeKey(task.Language, task.Code, task.Complexity)

	choice, err := s.selector.Select(profile, task, shapeKey, memoryLimit, s.history, runtimes)
	if err != nil {
		return Decision{Profile: profile, ShapeKey: shapeKey}, err
	}
	return Decision{Profile: profile, ShapeKey: shapeKey, Choice: choice}, nil
}

// Record appends an execution outcome to the history ring under the
// shape key the Decision was made with — spec.md §4.2.4 requires every
// execution, successful or not, to be recorded so later calls can
// learn.
func (s *Scheduler) Record(d Decision, entry core.HistoryEntry) {
	entry.TaskShapeKey = d.ShapeKey
	s.history.Record(d.ShapeKey, entry)
}
