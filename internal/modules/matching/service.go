// README: Driver-matching simulator: progress ticks plus periodic order resync.
package matching

import (
	"context"
	"sync"
	"time"

	"ridetrack/internal/sched"
)

// Provider abstracts where matching progress comes from so a real
// matching service can replace the simulator without touching the
// state machine.
type Provider interface {
	// Next returns the new progress value in [0,1] given the current one.
	Next(progress float64) float64
}

// SimulatedProvider advances progress by a fixed increment per tick,
// capped at 1.0.
type SimulatedProvider struct {
	Increment float64
}

func (p SimulatedProvider) Next(progress float64) float64 {
	next := progress + p.Increment
	if next > 1.0 {
		next = 1.0
	}
	return next
}

// Resyncer re-fetches the order; the state machine owns the actual
// status write.
type Resyncer interface {
	Resync(ctx context.Context)
}

type Config struct {
	ProgressTick time.Duration
	ResyncEvery  time.Duration
}

// Service presents matching progress while no driver is assigned. It
// never mutates the order itself; it only triggers resyncs.
type Service struct {
	provider Provider
	resyncer Resyncer

	mu       sync.Mutex
	progress float64
	done     bool

	progressTask *sched.Task
	resyncTask   *sched.Task
}

func NewService(provider Provider, resyncer Resyncer, cfg Config) *Service {
	s := &Service{provider: provider, resyncer: resyncer}
	s.progressTask = sched.NewTask(cfg.ProgressTick, s.progressTick)
	s.resyncTask = sched.NewTask(cfg.ResyncEvery, s.resyncTick)
	return s
}

func (s *Service) Start() {
	s.progressTask.Start()
	s.resyncTask.Start()
}

func (s *Service) Stop() {
	s.progressTask.Stop()
	s.resyncTask.Stop()
}

func (s *Service) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Service) progressTick(ctx context.Context) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.progress = s.provider.Next(s.progress)
	finished := s.progress >= 1.0
	if finished {
		s.done = true
	}
	s.mu.Unlock()

	if finished {
		// One last resync, then stop regardless of outcome: the real
		// assignment arrives via the status change, not via the bar
		// reaching 100%.
		s.resyncer.Resync(ctx)
		s.Stop()
	}
}

func (s *Service) resyncTick(ctx context.Context) {
	s.resyncer.Resync(ctx)
}
