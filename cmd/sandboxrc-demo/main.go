// Command sandboxrc-demo is a minimal wiring example showing how the
// execution controller, scheduler, and security coordinator fit
// together. It is a demo/collaborator, not part of the module's core
// test surface — analogous to cmd/server/main.go's wiring style in the
// teacher repo.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/rizome-dev/next-rc/internal/audit"
	"github.com/rizome-dev/next-rc/internal/backend"
	"github.com/rizome-dev/next-rc/internal/backend/ebpf"
	"github.com/rizome-dev/next-rc/internal/backend/firecracker"
	"github.com/rizome-dev/next-rc/internal/backend/python"
	"github.com/rizome-dev/next-rc/internal/backend/v8isolate"
	"github.com/rizome-dev/next-rc/internal/backend/wasm"
	"github.com/rizome-dev/next-rc/internal/config"
	"github.com/rizome-dev/next-rc/internal/controller"
	"github.com/rizome-dev/next-rc/internal/core"
	"github.com/rizome-dev/next-rc/internal/history"
	"github.com/rizome-dev/next-rc/internal/identity"
	"github.com/rizome-dev/next-rc/internal/metrics"
	"github.com/rizome-dev/next-rc/internal/profiler"
	"github.com/rizome-dev/next-rc/internal/scheduler"
	"github.com/rizome-dev/next-rc/internal/security/capability"
	"github.com/rizome-dev/next-rc/internal/security/coordinator"
	"github.com/rizome-dev/next-rc/internal/security/cordon"
	"github.com/rizome-dev/next-rc/internal/security/sandbox"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("NEXTRC_CONFIG_PATH"))
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		cfg = &config.Config{}
	}

	// 1. Runtime back-ends (C1).
	reg := backend.NewRegistry()
	reg.Register(wasm.New(wasm.Config{}, 64))
	reg.Register(ebpf.New())
	reg.Register(v8isolate.New(64))
	reg.Register(python.New())
	reg.Register(firecracker.New())

	ctx := context.Background()
	if err := reg.InitializeAll(ctx); err != nil {
		logger.Error("back-end initialization failed", "error", err)
		os.Exit(1)
	}

	// 2. Intelligent scheduler (C7-C10).
	sched := scheduler.New(profiler.New(), scheduler.NewSelector(), history.New(cfg.History.GlobalRingSize))

	// 3. Security coordinator (C2-C6).
	dockerBackend := cordon.NewDockerBackend("sandboxrc-worker:latest", "")
	cordonMgr := cordon.NewManager(dockerBackend, "sandboxrc-worker:latest", logger)

	auditLog := audit.New(cfg.Audit.RingSize)
	limiter := capability.NewRateLimiter(capability.DefaultLimits, nil, logger)
	capEngine := capability.New(capability.DefaultPolicies(), limiter, auditLog, logger)

	var issuer *identity.Issuer
	if cfg.Security.SpireSocket != "" {
		issuer = identity.NewIssuer(cfg.Security.SpireSocket, logger)
	}

	coord := coordinator.New(sandbox.New(), cordonMgr, capEngine, issuer, logger)

	// 4. Execution controller (C11).
	ctrl := controller.New(
		controller.Config{Concurrency: cfg.Concurrency, EnableScheduler: cfg.EnableScheduler},
		reg, sched, coord, cordonMgr, metrics.New(), logger,
	)

	task := core.Task{
		Code:         "function main() { function fib(n) { return n <= 1 ? n : fib(n-1) + fib(n-2); } return fib(10); }",
		Language:     core.LanguageJavaScript,
		LatencyClass: core.LatencyNormal,
		Complexity:   core.ComplexityModerate,
	}
	execCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := ctrl.ExecuteWithScheduler(execCtx, task, core.ExecutionConfig{
		TimeoutMs:   1000,
		Permissions: core.Permissions{TrustLevel: core.TrustLow},
	})
	if err != nil {
		logger.Error("execute_with_scheduler failed", "error", err)
	} else {
		logger.Info("execute_with_scheduler succeeded",
			"runtime", result.Decision.Choice.Runtime,
			"output", string(result.Result.Output),
			"execution_time_ms", result.Result.ExecutionTimeMs,
		)
	}

	status := ctrl.Status()
	logger.Info("controller status", "queue_depth", status.QueueDepth, "queue_capacity", status.QueueCapacity)

	if err := ctrl.Shutdown(context.Background()); err != nil {
		logger.Warn("shutdown reported an error", "error", err)
	}
}
