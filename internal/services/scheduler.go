package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Oliunekits/price-tracker-bot/internal/metrics"
	"go.uber.org/zap"
)

// PassRunner runs one monitoring pass
type PassRunner interface {
	RunPass(ctx context.Context) (PassReport, error)
}

// Locker guards passes across replicas
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// SchedulerOptions configures a Scheduler
type SchedulerOptions struct {
	Interval    time.Duration
	PassTimeout time.Duration
	RunOnStart  bool
	// Lock is optional; without it only the in-process guard applies
	Lock Locker
}

// Scheduler drives passes on a fixed interval and never runs two at once
type Scheduler struct {
	runner     PassRunner
	interval   time.Duration
	timeout    time.Duration
	runOnStart bool
	lock       Locker
	log        *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	// stopMu orders wg.Add against the final wg.Wait in Start
	stopMu  sync.Mutex
	stopped bool

	mu       sync.RWMutex
	last     PassReport
	lastSeen bool
}

// NewScheduler creates a new scheduler
func NewScheduler(runner PassRunner, opts SchedulerOptions, log *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = opts.Interval
	}
	return &Scheduler{
		runner:     runner,
		interval:   opts.Interval,
		timeout:    opts.PassTimeout,
		runOnStart: opts.RunOnStart,
		lock:       opts.Lock,
		log:        log,
	}
}

// Start ticks until ctx is cancelled, then waits for an in-flight pass
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("pass_timeout", s.timeout),
	)

	if s.runOnStart {
		s.tryStart(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.stopMu.Lock()
			s.stopped = true
			s.stopMu.Unlock()
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tryStart(ctx)
		}
	}
}

// TriggerNow starts an out-of-band pass. It returns false when a pass is
// already running or the scheduler has stopped. The pass outlives ctx but
// is bounded by the pass timeout.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	return s.tryStart(context.WithoutCancel(ctx))
}

// Running reports whether a pass is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastPass returns the report of the most recent pass, if any
func (s *Scheduler) LastPass() (PassReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.lastSeen
}

// Wait blocks until the in-flight pass, if any, has finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) tryStart(ctx context.Context) bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stopped {
		s.log.Info("scheduler stopped, not starting a pass")
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		metrics.PassesSkipped.Inc()
		s.log.Info("previous pass still running, skipping")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run(ctx)
	}()
	return true
}

func (s *Scheduler) run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.PassesTotal.WithLabelValues(metrics.ResultError).Inc()
			s.log.Error("pass panicked", zap.Any("panic", r), zap.Stack("stack"))
			s.setLast(PassReport{StartedAt: time.Now(), Error: fmt.Sprintf("panic: %v", r)})
		}
	}()

	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx)
		if err != nil {
			s.log.Warn("pass lock unavailable, skipping", zap.Error(err))
			metrics.PassesSkipped.Inc()
			return
		}
		if !ok {
			s.log.Info("pass lock held elsewhere, skipping")
			metrics.PassesSkipped.Inc()
			return
		}
		defer func() {
			if err := s.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("failed to release pass lock", zap.Error(err))
			}
		}()
	}

	report, _ := s.runner.RunPass(ctx)
	s.setLast(report)
}

func (s *Scheduler) setLast(report PassReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = report
	s.lastSeen = true
}
