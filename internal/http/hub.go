// README: Hub owns one tracking engine per order.
package http

import (
	"context"
	"sync"

	"ridetrack/internal/engine"
	"ridetrack/internal/types"
)

// Hub maps order ids to live engines. A stopped engine stays in the
// hub so its final state remains readable until the caller removes it.
type Hub struct {
	factory func() *engine.Engine

	mu      sync.Mutex
	engines map[types.ID]*engine.Engine
}

func NewHub(factory func() *engine.Engine) *Hub {
	return &Hub{factory: factory, engines: make(map[types.ID]*engine.Engine)}
}

func (h *Hub) Start(ctx context.Context, orderID types.ID) error {
	h.mu.Lock()
	if _, ok := h.engines[orderID]; ok {
		h.mu.Unlock()
		return engine.ErrAlreadyTracking
	}
	e := h.factory()
	h.engines[orderID] = e
	h.mu.Unlock()

	if err := e.Start(ctx, orderID); err != nil {
		h.mu.Lock()
		delete(h.engines, orderID)
		h.mu.Unlock()
		return err
	}
	return nil
}

func (h *Hub) Get(orderID types.ID) (*engine.Engine, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.engines[orderID]
	return e, ok
}

// Stop tears the engine down and removes it from the hub.
func (h *Hub) Stop(orderID types.ID) bool {
	h.mu.Lock()
	e, ok := h.engines[orderID]
	delete(h.engines, orderID)
	h.mu.Unlock()
	if ok {
		e.Stop()
	}
	return ok
}

func (h *Hub) StopAll() {
	h.mu.Lock()
	engines := make([]*engine.Engine, 0, len(h.engines))
	for _, e := range h.engines {
		engines = append(engines, e)
	}
	h.engines = make(map[types.ID]*engine.Engine)
	h.mu.Unlock()
	for _, e := range engines {
		e.Stop()
	}
}
