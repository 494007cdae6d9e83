// README: Tracking engine facade: wires the trackers for one order and owns teardown.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"ridetrack/internal/config"
	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/location"
	"ridetrack/internal/modules/matching"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/modules/tripmod"
	"ridetrack/internal/types"
)

// Backend is everything the engine needs from the external API client.
// *api.HTTPClient satisfies it.
type Backend interface {
	order.Fetcher
	location.Source
	chat.API
	tripmod.API
}

// Hooks are the caller-supplied reactions to one-shot events.
type Hooks struct {
	// OnArrived fires once when the driver reaches the pickup point.
	OnArrived func(o order.Order)
	// OnFatal fires when the tracking session dies underneath the
	// caller (the backend reports the order gone).
	OnFatal func(err error)
}

var (
	ErrAlreadyTracking = errors.New("engine already tracking an order")
	ErrNotTracking     = errors.New("engine is not tracking an order")
)

// Engine coordinates one order's lifecycle: state machine, matching
// simulation, location polling, messaging, and trip modification. One
// engine per tracked order; it cannot be restarted after Stop.
type Engine struct {
	backend  Backend
	locStore *location.Store
	cfg      config.Tracking
	hooks    Hooks

	orders   *order.Service
	matching *matching.Service
	location *location.Service
	chat     *chat.Service
	tripmod  *tripmod.Service

	mu          sync.Mutex
	orderID     types.ID
	started     bool
	stopped     bool
	arrivedOnce sync.Once
}

func New(backend Backend, locStore *location.Store, cfg config.Tracking, hooks Hooks) *Engine {
	return &Engine{backend: backend, locStore: locStore, cfg: cfg, hooks: hooks}
}

// Start fetches the order and activates the trackers appropriate for
// its current status. Matching simulation and location polling are
// mutually exclusive; messaging runs for the whole tracked lifetime.
func (e *Engine) Start(ctx context.Context, orderID types.ID) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyTracking
	}
	e.started = true
	e.orderID = orderID

	e.orders = order.NewService(e.backend, order.Config{ResyncInterval: e.cfg.StatusResync})
	e.chat = chat.NewService(e.backend, orderID, types.ID(e.cfg.PassengerID), e.orders.Status, chat.Config{
		PageSize:     e.cfg.MessagePageSize,
		PollPageSize: e.cfg.PollPageSize,
		PollInterval: e.cfg.MessagePoll,
		TypingIdle:   e.cfg.TypingIdle,
	})
	e.tripmod = tripmod.NewService(e.backend, e.chat, orderID, e.orders.Status)
	e.location = location.NewService(e.backend, e.orders, e.locStore, location.Config{
		PollInterval: e.cfg.LocationPoll,
	})
	e.matching = matching.NewService(
		matching.SimulatedProvider{Increment: e.cfg.ProgressIncrement},
		e.orders,
		matching.Config{ProgressTick: e.cfg.ProgressTick, ResyncEvery: e.cfg.MatchingResync},
	)
	e.mu.Unlock()

	e.orders.OnFatal(e.fatal)
	e.location.OnFatal(e.fatal)
	e.orders.OnTransition(e.onTransition)

	if err := e.orders.Start(ctx, orderID); err != nil {
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
		return err
	}

	switch st := e.orders.Status(); {
	case st == order.StatusPendingMatch:
		e.matching.Start()
	case !order.Terminal(st):
		e.location.Start(orderID)
	}

	if !order.Terminal(e.orders.Status()) {
		if err := e.chat.Load(ctx); err != nil {
			// Non-fatal: polling will fill the timeline in.
			log.Printf("engine %s: initial message load failed: %v", orderID, err)
		}
		e.chat.Start()
	}
	return nil
}

// Stop tears down every periodic task owned transitively by the
// engine. Idempotent, and also triggered automatically when the order
// reaches a terminal status.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	orderID := e.orderID
	e.mu.Unlock()

	e.matching.Stop()
	e.location.Stop()
	e.chat.Stop()
	e.orders.Stop()
	if e.locStore != nil {
		if err := e.locStore.RemoveFix(context.Background(), orderID); err != nil {
			log.Printf("engine %s: fix cleanup failed: %v", orderID, err)
		}
	}
}

// Stopped reports whether the session has ended (explicitly or via a
// terminal status).
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Engine) onTransition(ev order.Transition) {
	log.Printf("order %s: %s -> %s", ev.OrderID, ev.From, ev.To)

	switch ev.To {
	case order.StatusDriverAssigned:
		e.matching.Stop()
		e.location.Start(ev.OrderID)
	case order.StatusArrived:
		e.arrivedOnce.Do(func() {
			if e.hooks.OnArrived != nil {
				if o, ok := e.orders.Snapshot(); ok {
					e.hooks.OnArrived(o)
				}
			}
		})
	}

	if order.Terminal(ev.To) {
		e.Stop()
	}
}

func (e *Engine) fatal(err error) {
	log.Printf("order %s: tracking session lost: %v", e.orderID, err)
	e.Stop()
	if e.hooks.OnFatal != nil {
		e.hooks.OnFatal(err)
	}
}

func (e *Engine) ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Caller surface. All getters return copies; mutation happens only
// through the owning service.

func (e *Engine) Order() (order.Order, bool) {
	if !e.ready() {
		return order.Order{}, false
	}
	return e.orders.Snapshot()
}

func (e *Engine) Messages() []chat.Message {
	if !e.ready() {
		return nil
	}
	return e.chat.Messages()
}

func (e *Engine) UnreadCount() int {
	if !e.ready() {
		return 0
	}
	return e.chat.UnreadCount()
}

func (e *Engine) MatchingProgress() float64 {
	if !e.ready() {
		return 0
	}
	return e.matching.Progress()
}

func (e *Engine) Typing() bool {
	return e.ready() && e.chat.Typing()
}

func (e *Engine) CanSend() bool {
	return e.ready() && e.chat.CanSend()
}

func (e *Engine) Confirmation() tripmod.ConfirmationStatus {
	if !e.ready() {
		return tripmod.ConfirmationPending
	}
	return e.tripmod.Confirmation()
}

func (e *Engine) FareAdjustment() types.Money {
	if !e.ready() {
		return types.Money{}
	}
	return e.tripmod.Adjustment()
}

func (e *Engine) SendMessage(ctx context.Context, text string, mtype chat.MessageType) (chat.Message, error) {
	if !e.ready() {
		return chat.Message{}, ErrNotTracking
	}
	return e.chat.Send(ctx, text, mtype)
}

func (e *Engine) MarkRead(ctx context.Context, ids []string) error {
	if !e.ready() {
		return ErrNotTracking
	}
	return e.chat.MarkRead(ctx, ids)
}

func (e *Engine) OnTextChanged(text string) {
	if e.ready() {
		e.chat.OnTextChanged(text)
	}
}

func (e *Engine) SetChatOpen(open bool) {
	if e.ready() {
		e.chat.SetOpen(open)
	}
}

func (e *Engine) RequestModification(ctx context.Context, req tripmod.Request) (tripmod.Quote, error) {
	if !e.ready() {
		return tripmod.Quote{}, ErrNotTracking
	}
	return e.tripmod.Request(ctx, req)
}

func (e *Engine) CancelModification() {
	if e.ready() {
		e.tripmod.Cancel()
	}
}

func (e *Engine) ResolveModification(status tripmod.ConfirmationStatus) error {
	if !e.ready() {
		return ErrNotTracking
	}
	return e.tripmod.Resolve(status)
}
