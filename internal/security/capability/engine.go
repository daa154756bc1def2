package capability

import (
	"context"
	"log/slog"

	"github.com/rizome-dev/next-rc/internal/audit"
	"github.com/rizome-dev/next-rc/internal/core"
)

// CheckContext carries the call-site detail a validator may need —
// e.g. the host/port a NetworkAccess check is being asked to allow, or
// the command a ProcessSpawn check is being asked to allow.
type CheckContext struct {
	Host    string
	Port    int
	Path    string
	Command string
}

// Validator is an optional, capability-specific extra check beyond
// "is the capability present and within its rate limit".
type Validator func(ctx CheckContext) bool

// Policy is the per-capability configuration of spec.md §4.3 Layer D.
type Policy struct {
	Validator     Validator
	AuditRequired bool
}

var blockedHosts = map[string]bool{
	"169.254.169.254": true, // cloud metadata endpoint
}

var blockedPorts = map[int]bool{
	22: true, 23: true, 25: true, 445: true, 3389: true,
}

var allowedSpawnCommands = map[string]bool{
	"echo": true, "cat": true, "true": true, "false": true,
}

// DefaultPolicies returns the baseline validator set spec.md §4.3
// describes: NetworkAccess rejects metadata IP and a short blocked-port
// list; ProcessSpawn allows only a short whitelist of commands.
func DefaultPolicies() map[core.Capability]Policy {
	return map[core.Capability]Policy{
		core.CapabilityNetworkAccess: {
			AuditRequired: true,
			Validator: func(c CheckContext) bool {
				if blockedHosts[c.Host] {
					return false
				}
				if c.Port != 0 && blockedPorts[c.Port] {
					return false
				}
				return true
			},
		},
		core.CapabilityProcessSpawn: {
			AuditRequired: true,
			Validator: func(c CheckContext) bool {
				if c.Command == "" {
					return true
				}
				return allowedSpawnCommands[c.Command]
			},
		},
		core.CapabilityFileSystemWrite: {AuditRequired: true},
		core.CapabilityGPUAccess:       {AuditRequired: true},
	}
}

// Engine implements the Capability Check Engine (C3 / Layer D): for each
// capability it checks presence in the caller's Permissions, the rate
// limiter, and any registered validator, and logs every denial (and any
// grant flagged AuditRequired) to the audit ring.
type Engine struct {
	policies map[core.Capability]Policy
	limiter  *RateLimiter
	log      *audit.Log
	logger   *slog.Logger
}

// New creates an Engine. policies defaults to DefaultPolicies() if nil.
func New(policies map[core.Capability]Policy, limiter *RateLimiter, log *audit.Log, logger *slog.Logger) *Engine {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policies: policies, limiter: limiter, log: log, logger: logger.With("component", "capability.engine")}
}

// Check implements check(capability, context) of spec.md §4.3 Layer D:
// true iff perms holds the capability, the rate window is not exceeded,
// and any registered validator returns true. Every denial is recorded to
// the audit ring regardless of the capability's AuditRequired flag;
// grants are recorded only when AuditRequired is set.
func (e *Engine) Check(ctx context.Context, perms core.Permissions, cap core.Capability, cc CheckContext) bool {
	policy := e.policies[cap]

	if !perms.Has(cap) {
		e.deny(perms.TrustLevel, cap, "capability not held")
		return false
	}

	if e.limiter != nil && !e.limiter.Allow(ctx, perms.TrustLevel, cap) {
		e.deny(perms.TrustLevel, cap, "rate limit exceeded")
		return false
	}

	if policy.Validator != nil && !policy.Validator(cc) {
		e.deny(perms.TrustLevel, cap, "validator rejected context")
		return false
	}

	if policy.AuditRequired && e.log != nil {
		e.log.Record(core.AuditEntry{Capability: cap, Granted: true, TrustLevel: perms.TrustLevel, Detail: "granted"})
	}
	return true
}

func (e *Engine) deny(trust core.TrustLevel, cap core.Capability, detail string) {
	e.logger.Info("capability denied", "capability", cap, "trust_level", trust, "detail", detail)
	if e.log != nil {
		e.log.Record(core.AuditEntry{Capability: cap, Granted: false, TrustLevel: trust, Detail: detail})
	}
}
