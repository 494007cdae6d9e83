// README: Order state machine: canonical snapshot, transition checks, resync loop.
package order

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ridetrack/internal/apperrors"
	"ridetrack/internal/sched"
	"ridetrack/internal/types"
)

type Fetcher interface {
	GetOrder(ctx context.Context, id types.ID) (*Order, error)
}

type Config struct {
	// ResyncInterval is how often the snapshot is re-fetched while the
	// order is non-terminal.
	ResyncInterval time.Duration
}

// Service owns the canonical Order snapshot. All mutation goes through
// it; other components read copies and propose status changes via Apply.
type Service struct {
	fetcher Fetcher
	cfg     Config

	mu    sync.Mutex
	order *Order

	resync    *sched.Task
	listeners []func(Transition)
	fatal     func(error)
}

func NewService(fetcher Fetcher, cfg Config) *Service {
	return &Service{fetcher: fetcher, cfg: cfg}
}

// OnTransition registers a listener. Must be called before Start;
// listeners run on the goroutine that applied the change, outside the
// snapshot lock.
func (s *Service) OnTransition(fn func(Transition)) {
	s.listeners = append(s.listeners, fn)
}

// OnFatal registers the hook invoked when the backend reports the order
// gone mid-session.
func (s *Service) OnFatal(fn func(error)) {
	s.fatal = fn
}

// Start fetches the initial snapshot and begins periodic resync while
// the order is non-terminal.
func (s *Service) Start(ctx context.Context, id types.ID) error {
	o, err := s.fetcher.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.order = o
	s.mu.Unlock()
	if !Terminal(o.Status) {
		s.resync = sched.NewTask(s.cfg.ResyncInterval, func(ctx context.Context) { s.Resync(ctx) })
		s.resync.Start()
	}
	return nil
}

// Stop cancels the resync loop; idempotent.
func (s *Service) Stop() {
	if s.resync != nil {
		s.resync.Stop()
	}
}

// Snapshot returns a copy of the current order.
func (s *Service) Snapshot() (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return Order{}, false
	}
	return copyOrder(*s.order), true
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ""
	}
	return s.order.Status
}

func (s *Service) ID() types.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ""
	}
	return s.order.ID
}

// Apply moves the snapshot to next if the transition is legal. Equal
// statuses are a no-op; an out-of-graph transition is logged and
// ignored rather than crashing the engine.
func (s *Service) Apply(next Status) {
	s.mu.Lock()
	if s.order == nil || s.order.Status == next {
		s.mu.Unlock()
		return
	}
	from := s.order.Status
	if !CanTransition(from, next) {
		id := s.order.ID
		s.mu.Unlock()
		illegalTransitionsTotal.Inc()
		log.Printf("order %s: ignoring illegal transition %s -> %s", id, from, next)
		return
	}
	s.order.Status = next
	ev := Transition{OrderID: s.order.ID, From: from, To: next, At: time.Now()}
	listeners := s.listeners
	s.mu.Unlock()

	transitionsTotal.WithLabelValues(string(next)).Inc()
	for _, fn := range listeners {
		fn(ev)
	}
}

// SetDriverFix replaces the driver with a fresh copy carrying the given
// position and ETA. Identity fields are kept from the last refresh.
func (s *Service) SetDriverFix(pos types.Point, eta *time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return
	}
	var d Driver
	if s.order.Driver != nil {
		d = *s.order.Driver
	}
	p := pos
	d.Location = &p
	d.EstimatedArrival = eta
	s.order.Driver = &d
}

// Resync re-fetches the order and folds the result into the snapshot.
// Transient failures are logged and swallowed; a vanished order is
// fatal to the session.
func (s *Service) Resync(ctx context.Context) {
	s.mu.Lock()
	if s.order == nil {
		s.mu.Unlock()
		return
	}
	id := s.order.ID
	s.mu.Unlock()

	o, err := s.fetcher.GetOrder(ctx, id)
	switch {
	case err == nil:
		s.applyFetched(o)
	case errors.Is(err, apperrors.ErrOrderNotFound):
		log.Printf("order %s: gone during resync", id)
		if s.fatal != nil {
			s.fatal(err)
		}
	case errors.Is(err, context.Canceled):
	default:
		log.Printf("order %s: resync failed: %v", id, err)
	}
}

// applyFetched merges a fresh snapshot: non-status fields are replaced
// wholesale, the status change goes through Apply so the graph check
// and listeners fire exactly once.
func (s *Service) applyFetched(o *Order) {
	s.mu.Lock()
	if s.order == nil {
		s.mu.Unlock()
		return
	}
	if o.Driver != nil {
		d := *o.Driver
		s.order.Driver = &d
	}
	s.order.Destination = o.Destination
	s.order.Stops = o.Stops
	s.order.EstimatedPrice = o.EstimatedPrice
	s.order.ActualPrice = o.ActualPrice
	s.mu.Unlock()

	s.Apply(o.Status)
}

func copyOrder(o Order) Order {
	if o.Driver != nil {
		d := *o.Driver
		o.Driver = &d
	}
	if o.Stops != nil {
		o.Stops = append([]types.Point(nil), o.Stops...)
	}
	return o
}
