package pixel

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

// sessionStaleAfter is the default silence after which an active session is reaped.
const sessionStaleAfter = 30 * time.Second

type ReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	Clock      quartz.Clock
}

// Reaper periodically ends sessions whose clients went away without an end
// signal, so their time is still counted.
type Reaper struct {
	service    *Service
	clock      quartz.Clock
	interval   time.Duration
	staleAfter time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	waiter quartz.Waiter
}

func NewReaper(cfg ReaperConfig, service *Service, logger *zap.Logger) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = sessionStaleAfter
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &Reaper{
		service:    service,
		clock:      cfg.Clock,
		interval:   cfg.Interval,
		staleAfter: cfg.StaleAfter,
		logger:     logger,
	}
}

// Start schedules sweeps on the reaper interval until Stop or ctx is done.
// A sweep never overlaps with the previous one.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.waiter = r.clock.TickerFunc(ctx, r.interval, func() error {
		r.Sweep(ctx)
		return nil
	}, "reaper")

	r.logger.Info("Stale session reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("stale_after", r.staleAfter),
	)
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, waiter := r.cancel, r.waiter
	r.cancel, r.waiter = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = waiter.Wait()
	r.logger.Info("Stale session reaper stopped")
}

// Sweep runs a single pass and returns the number of sessions it ended.
func (r *Reaper) Sweep(ctx context.Context) int {
	n := r.service.ReapStale(ctx, r.staleAfter)
	if n > 0 {
		r.logger.Info("Reaped stale sessions", zap.Int("count", n))
	} else {
		r.logger.Debug("Reaper sweep found no stale sessions")
	}
	return n
}
