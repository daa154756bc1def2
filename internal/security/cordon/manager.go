package cordon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Worker is a recyclable, trust-level-restricted process/container
// handle, mirroring the teacher's GhostContainer.
type Worker struct {
	ID         string
	Trust      core.TrustLevel
	SpawnedAt  time.Time
	LastUsed   time.Time
	Executions int
}

// sizing is the default (min, max) pool size per trust level of
// spec.md §4.3 Layer A.
var sizing = map[core.TrustLevel]struct{ min, max int }{
	core.TrustLow:    {5, 50},
	core.TrustMedium: {3, 30},
	core.TrustHigh:   {2, 20},
}

const (
	recycleAfterExecutions = 1000
	recycleAfterAge        = time.Hour
	idleReapTimeout         = 5 * time.Minute
	maintainInterval        = 2 * time.Second
)

// pool holds one trust level's available/active worker sets.
type pool struct {
	mu        sync.Mutex
	available chan *Worker
	active    map[string]*Worker
}

// Manager implements the Process-Cordon Manager (C4): one pool per
// trust level, each backed by a pluggable Backend.
type Manager struct {
	backend Backend
	image   string
	logger  *slog.Logger

	pools map[core.TrustLevel]*pool
	stop  chan struct{}
}

// NewManager creates a Manager and starts its background maintainer.
func NewManager(backend Backend, image string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		backend: backend,
		image:   image,
		logger:  logger.With("component", "cordon.manager", "backend", backend.Name()),
		pools:   make(map[core.TrustLevel]*pool),
		stop:    make(chan struct{}),
	}
	for trust, sz := range sizing {
		m.pools[trust] = &pool{
			available: make(chan *Worker, sz.max),
			active:    make(map[string]*Worker),
		}
	}
	go m.maintain()
	return m
}

// Acquire implements acquire(trust_level): reuse an idle worker if one
// is available; otherwise spawn one up to max; otherwise block FIFO for
// a release.
func (m *Manager) Acquire(ctx context.Context, trust core.TrustLevel) (*Worker, error) {
	p := m.pools[trust]
	if p == nil {
		return nil, core.NewError(core.ErrSandboxSetup, "unknown trust level").WithDetails(trust)
	}

	select {
	case w := <-p.available:
		p.mu.Lock()
		p.active[w.ID] = w
		p.mu.Unlock()
		w.LastUsed = time.Now()
		return w, nil
	default:
	}

	if w, ok := m.trySpawn(ctx, trust, p); ok {
		p.mu.Lock()
		p.active[w.ID] = w
		p.mu.Unlock()
		return w, nil
	}

	select {
	case w := <-p.available:
		p.mu.Lock()
		p.active[w.ID] = w
		p.mu.Unlock()
		w.LastUsed = time.Now()
		return w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) trySpawn(ctx context.Context, trust core.TrustLevel, p *pool) (*Worker, bool) {
	sz := sizing[trust]
	p.mu.Lock()
	total := len(p.active) + len(p.available)
	p.mu.Unlock()
	if total >= sz.max {
		return nil, false
	}

	id, err := m.backend.CreateWorker(ctx, string(trust))
	if err != nil {
		m.logger.Warn("failed to create cordon worker", "trust_level", trust, "error", err)
		return nil, false
	}
	if err := m.backend.StartWorker(ctx, id); err != nil {
		m.logger.Warn("failed to start cordon worker", "trust_level", trust, "error", err)
		m.backend.RemoveWorker(context.Background(), id)
		return nil, false
	}
	return &Worker{ID: id, Trust: trust, SpawnedAt: time.Now(), LastUsed: time.Now()}, true
}

// Release returns a worker to its pool, recycling it first if it has
// exceeded the execution-count or age threshold.
func (m *Manager) Release(w *Worker) {
	p := m.pools[w.Trust]
	if p == nil {
		return
	}
	w.Executions++

	if w.Executions > recycleAfterExecutions || time.Since(w.SpawnedAt) > recycleAfterAge {
		go m.recycle(w, p)
		return
	}

	p.mu.Lock()
	delete(p.active, w.ID)
	p.mu.Unlock()
	p.available <- w
}

func (m *Manager) recycle(w *Worker, p *pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.mu.Lock()
	delete(p.active, w.ID)
	p.mu.Unlock()

	if err := m.backend.StopWorker(ctx, w.ID); err != nil {
		m.logger.Warn("failed to stop recycled worker", "worker_id", w.ID, "error", err)
	}
	if err := m.backend.RemoveWorker(ctx, w.ID); err != nil {
		m.logger.Warn("failed to remove recycled worker", "worker_id", w.ID, "error", err)
	}
	m.logger.Info("recycled cordon worker", "worker_id", w.ID, "trust_level", w.Trust, "executions", w.Executions)
}

// maintain replenishes each pool toward its min idle size and reaps
// idle workers beyond min, mirroring the teacher's maintainPool ticker
// loop.
func (m *Manager) maintain() {
	ticker := time.NewTicker(maintainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			for trust, p := range m.pools {
				m.reapIdle(trust, p)

				sz := sizing[trust]
				p.mu.Lock()
				activeCount := len(p.active)
				p.mu.Unlock()
				availableCount := len(p.available)
				total := activeCount + availableCount

				if availableCount < sz.min && total < sz.max {
					deficit := sz.min - availableCount
					for i := 0; i < deficit && total+i < sz.max; i++ {
						go m.prewarm(trust, p)
					}
				}
			}
		}
	}
}

// reapIdle implements the Idle→Recycling transition of spec.md §4.5:
// an available worker idle beyond idleReapTimeout is recycled rather
// than kept warm, as long as doing so doesn't shrink the pool below
// its min.
func (m *Manager) reapIdle(trust core.TrustLevel, p *pool) {
	sz := sizing[trust]
	now := time.Now()
	n := len(p.available)

	p.mu.Lock()
	total := len(p.active) + len(p.available)
	p.mu.Unlock()

	for i := 0; i < n; i++ {
		select {
		case w := <-p.available:
			if total > sz.min && now.Sub(w.LastUsed) > idleReapTimeout {
				total--
				go m.recycle(w, p)
				continue
			}
			p.available <- w
		default:
			return
		}
	}
}

func (m *Manager) prewarm(trust core.TrustLevel, p *pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if w, ok := m.trySpawn(ctx, trust, p); ok {
		p.available <- w
	}
}

// Stats reports per-trust-level pool occupancy for the metrics snapshot.
func (m *Manager) Stats() map[core.TrustLevel]map[string]int {
	out := make(map[core.TrustLevel]map[string]int)
	for trust, p := range m.pools {
		p.mu.Lock()
		out[trust] = map[string]int{
			"active":    len(p.active),
			"available": len(p.available),
		}
		p.mu.Unlock()
	}
	return out
}

// Close stops the background maintainer. It does not tear down live
// workers; callers drain pools via Release during shutdown.
func (m *Manager) Close() {
	close(m.stop)
}
