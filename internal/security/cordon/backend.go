// Package cordon implements the Process-Cordon Manager (C4 / Layer A of
// spec.md §4.3): pools of pre-spawned, trust-level-restricted worker
// processes. Generalized from the teacher's internal/ghostpool package —
// ghost containers keyed by tenant become cordon workers keyed by
// core.TrustLevel, and the pluggable PoolBackend/DockerBackend split is
// kept verbatim in shape so a Kubernetes-backed implementation can be
// dropped in without touching CordonManager.
package cordon

import "context"

// Backend abstracts the container/VM runtime a cordon pool delegates
// to, mirroring the teacher's ghostpool.PoolBackend interface.
type Backend interface {
	CreateWorker(ctx context.Context, trust string) (workerID string, err error)
	StartWorker(ctx context.Context, workerID string) error
	StopWorker(ctx context.Context, workerID string) error
	RemoveWorker(ctx context.Context, workerID string) error
	Name() string
}
