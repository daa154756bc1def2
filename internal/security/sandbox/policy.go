// Package sandbox implements the Sandbox Policy Engine (C2 / Layer B of
// spec.md §4.3): deriving a per-execution sandbox configuration from a
// trust level and capability set, and validating individual operations
// against it at the back-end boundary.
package sandbox

import (
	"strings"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Config is the derived sandbox configuration for one execution.
type Config struct {
	BlockNetwork      bool
	BlockFSRead       bool
	BlockFSWrite      bool
	BlockProcessSpawn bool
	BlockedSyscalls   []string
	AllowedHosts      []string // empty means "none"; "*" means "all"
	AllowedPaths      []string
	MaxMemoryBytes    int64
	MaxCPUPercent     int
	TimeoutMs         int
}

// baselineSyscalls are always blocked regardless of capabilities,
// per spec.md §4.3 Layer B.
var baselineSyscalls = []string{
	"fork", "vfork", "clone", "execve", "execveat",
	"ptrace", "process_vm_readv", "process_vm_writev",
}

var networkSyscalls = []string{"socket", "connect", "bind", "listen", "accept"}
var fsWriteSyscalls = []string{"write", "creat", "rename", "unlink", "mkdir"}

// trustDefaults is the per-trust-level (allowed_hosts, allowed_paths,
// max_memory, max_cpu_pct, timeout_ms) table of spec.md §4.3 Layer B.
type trustDefault struct {
	hosts      []string
	paths      []string
	maxMemory  int64
	maxCPUPct  int
	timeoutMs  int
}

var trustDefaults = map[core.TrustLevel]trustDefault{
	core.TrustLow:    {hosts: nil, paths: []string{"/tmp/sandbox/"}, maxMemory: 128 * 1024 * 1024, maxCPUPct: 25, timeoutMs: 30_000},
	core.TrustMedium: {hosts: []string{"127.0.0.1", "localhost"}, paths: []string{"/tmp/sandbox", "/usr/share", "/etc/ssl"}, maxMemory: 512 * 1024 * 1024, maxCPUPct: 50, timeoutMs: 300_000},
	core.TrustHigh:   {hosts: []string{"*"}, paths: []string{"*"}, maxMemory: 2 * 1024 * 1024 * 1024, maxCPUPct: 100, timeoutMs: 1_800_000},
}

// Engine derives and validates sandbox configuration. It holds no
// mutable state; every method is a pure function of its arguments.
type Engine struct{}

// New creates a Sandbox Policy Engine.
func New() *Engine {
	return &Engine{}
}

// DeriveConfig implements spec.md §4.3 Layer B exactly.
func (e *Engine) DeriveConfig(perms core.Permissions) Config {
	blockNetwork := !perms.Has(core.CapabilityNetworkAccess)
	blockFSRead := !perms.Has(core.CapabilityFileSystemRead)
	blockFSWrite := !perms.Has(core.CapabilityFileSystemWrite)
	blockProcessSpawn := !perms.Has(core.CapabilityProcessSpawn)

	blocked := append([]string{}, baselineSyscalls...)
	if blockNetwork {
		blocked = append(blocked, networkSyscalls...)
	}
	if blockFSWrite {
		blocked = append(blocked, fsWriteSyscalls...)
	}

	def := trustDefaults[perms.TrustLevel]
	return Config{
		BlockNetwork:      blockNetwork,
		BlockFSRead:       blockFSRead,
		BlockFSWrite:      blockFSWrite,
		BlockProcessSpawn: blockProcessSpawn,
		BlockedSyscalls:   blocked,
		AllowedHosts:      def.hosts,
		AllowedPaths:      def.paths,
		MaxMemoryBytes:    def.maxMemory,
		MaxCPUPercent:     def.maxCPUPct,
		TimeoutMs:         def.timeoutMs,
	}
}

// Operation describes a single back-end-boundary call to validate.
type Operation struct {
	Kind    string // "network", "fs_read", "fs_write", "process_spawn"
	Host    string
	Path    string
	Command string
}

// ValidateOperation implements validate_operation(op, config, ctx) of
// spec.md §4.3 Layer B.
func (e *Engine) ValidateOperation(op Operation, cfg Config) bool {
	switch op.Kind {
	case "network":
		if cfg.BlockNetwork {
			return false
		}
		return hostAllowed(op.Host, cfg.AllowedHosts)
	case "fs_read":
		if cfg.BlockFSRead {
			return false
		}
		return pathAllowed(op.Path, cfg.AllowedPaths)
	case "fs_write":
		if cfg.BlockFSWrite {
			return false
		}
		return pathAllowed(op.Path, cfg.AllowedPaths)
	case "process_spawn":
		return !cfg.BlockProcessSpawn
	default:
		return false
	}
}

func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == host {
			return true
		}
	}
	return false
}

func pathAllowed(path string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.HasPrefix(path, a) {
			return true
		}
	}
	return false
}
