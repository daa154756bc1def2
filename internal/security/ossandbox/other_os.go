//go:build !linux

package ossandbox

import "log/slog"

// applyPlatform is a no-op on non-Linux builds: there is no namespace or
// rlimit facility to attach, so the coordinator is told nothing was
// applied and must not treat that as an escalation.
func applyPlatform(pid int, namespaces []string, applied *Applied) {
	applied.Available = false
	applied.Warning = "os sandbox layer not implemented on this platform"
	slog.Warn("os sandbox layer unavailable on this platform, continuing without it")
}
