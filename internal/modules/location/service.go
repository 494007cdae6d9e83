// README: Location tracker: polls the driver fix and feeds status changes back.
package location

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/sched"
	"ridetrack/internal/types"
)

type Source interface {
	DriverLocation(ctx context.Context, orderID types.ID) (Fix, error)
}

// StatusSink is the slice of the order state machine the tracker needs.
type StatusSink interface {
	SetDriverFix(pos types.Point, eta *time.Duration)
	Apply(next order.Status)
	Status() order.Status
}

type Config struct {
	PollInterval time.Duration
}

type Service struct {
	source Source
	orders StatusSink
	store  *Store // optional fan-out cache; may be nil
	cfg    Config
	fatal  func(error)

	mu      sync.Mutex
	orderID types.ID
	task    *sched.Task
}

func NewService(source Source, orders StatusSink, store *Store, cfg Config) *Service {
	return &Service{source: source, orders: orders, store: store, cfg: cfg}
}

func (s *Service) OnFatal(fn func(error)) {
	s.fatal = fn
}

// Start begins polling with one immediate fetch; idempotent.
func (s *Service) Start(orderID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil && s.task.Running() {
		return
	}
	s.orderID = orderID
	s.task = sched.NewTask(s.cfg.PollInterval, s.pollTick, sched.Immediate())
	s.task.Start()
}

func (s *Service) Stop() {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

func (s *Service) pollTick(ctx context.Context) {
	s.mu.Lock()
	orderID := s.orderID
	s.mu.Unlock()

	fix, err := s.source.DriverLocation(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrOrderNotFound):
			// Fatal: stop polling and surface to the caller.
			log.Printf("location %s: order gone, stopping tracker", orderID)
			s.Stop()
			if s.fatal != nil {
				s.fatal(err)
			}
		case apperrors.IsNetwork(err):
			// Transient; stay on schedule without bothering the user.
			log.Printf("location %s: poll failed: %v", orderID, err)
		case errors.Is(err, context.Canceled):
		default:
			log.Printf("location %s: unexpected poll error: %v", orderID, err)
		}
		return
	}

	s.orders.SetDriverFix(fix.Position, fix.EstimatedArrival)
	if s.store != nil {
		if err := s.store.PublishFix(ctx, orderID, fix.Position); err != nil {
			log.Printf("location %s: fix fan-out failed: %v", orderID, err)
		}
	}
	if current := s.orders.Status(); fix.Status != current {
		s.orders.Apply(fix.Status)
	}
}
