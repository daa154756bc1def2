// Package coordinator implements the Security Coordinator (C6 / Layer E
// of spec.md §4.3): assembles a SecurityContext from C2 (sandbox.Engine),
// C4 (cordon.Manager), and C5 (ossandbox) for each execution, and tears
// it down in reverse order on every exit path, including a back-end
// panic.
package coordinator

import (
	"context"
	"log/slog"

	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/identity"
	"github.com/rizome-dev/next-rc/internal/security/capability"
	"github.com/rizome-dev/next-rc/internal/security/cordon"
	"github.com/rizome-dev/next-rc/internal/security/ossandbox"
	"github.com/rizome-dev/next-rc/internal/security/sandbox"
)

// Coordinator wires the four security layers together.
type Coordinator struct {
	sandbox    *sandbox.Engine
	cordon     *cordon.Manager
	capability *capability.Engine
	identity   *identity.Issuer
	logger     *slog.Logger
}

// New creates a Coordinator from its collaborators. identityIssuer may
// be nil, in which case worker identity falls back to an empty handle.
func New(sandboxEngine *sandbox.Engine, cordonManager *cordon.Manager, capabilityEngine *capability.Engine, identityIssuer *identity.Issuer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sandbox:    sandboxEngine,
		cordon:     cordonManager,
		capability: capabilityEngine,
		identity:   identityIssuer,
		logger:     logger.With("component", "security.coordinator"),
	}
}

// Context is a live security context plus the handle needed to tear it
// down: the acquired cordon worker.
type Context struct {
	core.SecurityContext
	SandboxConfig sandbox.Config
	OSApplied     ossandbox.Applied
	worker        *cordon.Worker
}

// CreateSecurityContext implements create_security_context(permissions)
// of spec.md §4.3 Layer E: acquire a worker (A), compute sandbox config
// (B), apply the OS sandbox (C), and pre-validate declared capabilities
// (D).
func (c *Coordinator) CreateSecurityContext(ctx context.Context, perms core.Permissions) (*Context, error) {
	worker, err := c.cordon.Acquire(ctx, perms.TrustLevel)
	if err != nil {
		return nil, core.Wrap(core.ErrSandboxSetup, err).WithDetails("cordon acquire failed")
	}

	cfg := c.sandbox.DeriveConfig(perms)

	applied := ossandbox.Setup(perms.TrustLevel, 0, cfg.MaxCPUPercent)
	if !applied.Available {
		c.logger.Warn("os sandbox layer degraded for this execution", "trust_level", perms.TrustLevel, "warning", applied.Warning)
	}

	var workerIdentity identity.Identity
	if c.identity != nil {
		workerIdentity = c.identity.Issue()
	}

	handles := make(map[string]bool, len(applied.NamespacesApplied)+1)
	for _, ns := range applied.NamespacesApplied {
		handles[ns] = true
	}
	if workerIdentity.ID != "" {
		handles["identity:"+workerIdentity.ID] = true
	}

	for cap := range perms.Capabilities {
		if !perms.Has(cap) {
			continue
		}
		c.capability.Check(ctx, perms, cap, capability.CheckContext{})
	}

	return &Context{
		SecurityContext: core.SecurityContext{
			TrustLevel:       perms.TrustLevel,
			Permissions:      perms,
			ProcessID:        worker.ID,
			NamespaceHandles: handles,
			SyscallProfileID: string(applied.SyscallProfile),
		},
		SandboxConfig: cfg,
		OSApplied:     applied,
		worker:        worker,
	}, nil
}

// Teardown releases the cordon worker. The namespace handles recorded in
// the context are names only; Teardown does not release or close them.
// It is safe to call multiple times and safe to call after a panic
// recovered by the caller — callers should defer it unconditionally
// right after CreateSecurityContext succeeds.
func (c *Coordinator) Teardown(sc *Context) {
	if sc == nil || sc.worker == nil {
		return
	}
	c.cordon.Release(sc.worker)
	sc.worker = nil
}
