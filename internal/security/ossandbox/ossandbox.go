// Package ossandbox implements the OS Sandbox Setup (C5 / Layer C of
// spec.md §4.3): derives the namespace set, syscall-filter profile name
// and cgroup limits for a cordon worker's trust level and, on Linux, sets
// an address-space rlimit. It does not create namespaces or attach a
// syscall filter itself. Grounded on the teacher's
// internal/gvisor.SandboxExecutor "demo mode" idiom — when the kernel
// facility isn't available, this logs a warning and continues without
// that sub-layer; it never silently escalates privileges.
package ossandbox

import (
	"strconv"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Namespace sets per trust level, per spec.md §4.3 Layer C.
const (
	NamespaceMount   = "mount"
	NamespaceUTS     = "uts"
	NamespaceIPC     = "ipc"
	NamespacePID     = "pid"
	NamespaceNetwork = "network"
	NamespaceUser    = "user"
	NamespaceCgroup  = "cgroup"
)

var namespacesByTrust = map[core.TrustLevel][]string{
	core.TrustLow:    {NamespaceMount, NamespaceUTS, NamespaceIPC, NamespacePID, NamespaceNetwork, NamespaceUser, NamespaceCgroup},
	core.TrustMedium: {NamespaceMount, NamespaceUTS, NamespaceIPC, NamespacePID, NamespaceUser, NamespaceCgroup},
	core.TrustHigh:   {NamespaceUTS, NamespacePID, NamespaceCgroup},
}

// SyscallProfile names the syscall filter profile attached to a worker.
type SyscallProfile string

const (
	ProfileAllowList SyscallProfile = "allow_list_low"
	ProfileDenyTight SyscallProfile = "deny_tight_medium"
	ProfileDenyFew   SyscallProfile = "deny_few_high"
)

var denyTightList = []string{"ptrace", "mount", "pivot_root", "setns", "unshare", "kexec_load"}
var denyFewList = []string{"kexec_load", "reboot", "init_module"}

func syscallProfileFor(trust core.TrustLevel) SyscallProfile {
	switch trust {
	case core.TrustLow:
		return ProfileAllowList
	case core.TrustMedium:
		return ProfileDenyTight
	default:
		return ProfileDenyFew
	}
}

// CgroupLimits is the derived cgroup v2 configuration for a worker,
// computed as (quota * 1000) / 100000 per spec.md §4.3 Layer C.
type CgroupLimits struct {
	MemoryMaxBytes int64
	CPUMax         string // "<quota> 100000"
}

// Applied is the outcome of Apply: which sub-layers actually took
// effect on this kernel/build, for audit and for Controller.Status.
type Applied struct {
	NamespacesRequested []string
	NamespacesApplied   []string
	SyscallProfile      SyscallProfile
	Cgroup              CgroupLimits
	Available           bool // false if this platform has no namespace/syscall facility
	Warning             string
}

// Setup derives the namespace set, syscall profile, and cgroup limits
// for a worker at trust, then calls the platform-specific apply
// (linux.go / other_os.go) to attach them to pid.
func Setup(trust core.TrustLevel, pid int, maxCPUPercent int) Applied {
	namespaces := namespacesByTrust[trust]
	cgroup := CgroupLimits{
		MemoryMaxBytes: trustDefaultMemory(trust),
		CPUMax:         cpuMaxString(maxCPUPercent),
	}

	applied := Applied{
		NamespacesRequested: namespaces,
		SyscallProfile:      syscallProfileFor(trust),
		Cgroup:              cgroup,
	}
	applyPlatform(pid, namespaces, &applied)
	return applied
}

func trustDefaultMemory(trust core.TrustLevel) int64 {
	switch trust {
	case core.TrustLow:
		return 128 * 1024 * 1024
	case core.TrustMedium:
		return 512 * 1024 * 1024
	default:
		return 2 * 1024 * 1024 * 1024
	}
}

func cpuMaxString(pct int) string {
	if pct <= 0 {
		pct = 100
	}
	quota := pct * 1000
	return strconv.Itoa(quota) + " 100000"
}
