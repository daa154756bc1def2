package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rizome-dev/next-rc/internal/core"
)

func permsWith(trust core.TrustLevel, caps ...core.Capability) core.Permissions {
	m := make(map[core.Capability]bool)
	for _, c := range caps {
		m[c] = true
	}
	return core.Permissions{Capabilities: m, TrustLevel: trust}
}

func TestDeriveConfigBlocksEverythingByDefault(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustLow))
	assert.True(t, cfg.BlockNetwork)
	assert.True(t, cfg.BlockFSRead)
	assert.True(t, cfg.BlockFSWrite)
	assert.True(t, cfg.BlockProcessSpawn)
	assert.Contains(t, cfg.BlockedSyscalls, "execve")
	assert.Contains(t, cfg.BlockedSyscalls, "socket")
	assert.Contains(t, cfg.BlockedSyscalls, "write")
}

func TestDeriveConfigNetworkCapabilityUnblocksNetworkSyscalls(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustMedium, core.CapabilityNetworkAccess))
	assert.False(t, cfg.BlockNetwork)
	assert.NotContains(t, cfg.BlockedSyscalls, "socket")
	assert.Contains(t, cfg.BlockedSyscalls, "execve", "baseline syscalls are always blocked")
}

func TestDeriveConfigTrustLevelDefaults(t *testing.T) {
	e := New()
	low := e.DeriveConfig(permsWith(core.TrustLow))
	high := e.DeriveConfig(permsWith(core.TrustHigh))

	assert.Equal(t, int64(128*1024*1024), low.MaxMemoryBytes)
	assert.Equal(t, 25, low.MaxCPUPercent)

	assert.Equal(t, int64(2*1024*1024*1024), high.MaxMemoryBytes)
	assert.Equal(t, 100, high.MaxCPUPercent)
	assert.Equal(t, []string{"*"}, high.AllowedHosts)
}

func TestValidateOperationNetworkRequiresAllowedHost(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustMedium, core.CapabilityNetworkAccess))

	assert.True(t, e.ValidateOperation(Operation{Kind: "network", Host: "localhost"}, cfg))
	assert.False(t, e.ValidateOperation(Operation{Kind: "network", Host: "example.com"}, cfg))
}

func TestValidateOperationBlockedWhenCapabilityMissing(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustLow))
	assert.False(t, e.ValidateOperation(Operation{Kind: "network", Host: "localhost"}, cfg))
	assert.False(t, e.ValidateOperation(Operation{Kind: "fs_write", Path: "/tmp/sandbox/x"}, cfg))
}

func TestValidateOperationFSReadRequiresAllowedPathPrefix(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustMedium, core.CapabilityFileSystemRead))
	assert.True(t, e.ValidateOperation(Operation{Kind: "fs_read", Path: "/usr/share/fonts"}, cfg))
	assert.False(t, e.ValidateOperation(Operation{Kind: "fs_read", Path: "/root/.ssh"}, cfg))
}

func TestValidateOperationUnknownKindIsDenied(t *testing.T) {
	e := New()
	cfg := e.DeriveConfig(permsWith(core.TrustHigh))
	assert.False(t, e.ValidateOperation(Operation{Kind: "gpu"}, cfg))
}

func TestValidateOperationProcessSpawnFollowsCapability(t *testing.T) {
	e := New()
	withSpawn := e.DeriveConfig(permsWith(core.TrustHigh, core.CapabilityProcessSpawn))
	withoutSpawn := e.DeriveConfig(permsWith(core.TrustHigh))

	assert.True(t, e.ValidateOperation(Operation{Kind: "process_spawn"}, withSpawn))
	assert.False(t, e.ValidateOperation(Operation{Kind: "process_spawn"}, withoutSpawn))
}
