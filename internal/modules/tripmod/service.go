// README: Trip-modification negotiator: request → fare quote → driver confirmation.
package tripmod

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/types"
)

type API interface {
	QuoteFareAdjustment(ctx context.Context, orderID types.ID, req Request) (Quote, error)
	RequestTripModification(ctx context.Context, orderID types.ID, req Request) error
}

// Timeline is where negotiation results land as system messages.
type Timeline interface {
	AppendSystem(content string) chat.Message
}

var (
	ErrNotAllowed = errors.New("modification not allowed for current order status")
	ErrInFlight   = errors.New("a modification is already in flight")
	ErrNoRequest  = errors.New("no modification in flight")
)

// eligibleStatuses: modifications can only be negotiated before the
// driver has arrived.
var eligibleStatuses = map[order.Status]bool{
	order.StatusDriverAssigned: true,
	order.StatusAccepted:       true,
}

// Service drives a single in-flight negotiation:
// none → requested(pending) → resolved(accepted|declined), resettable
// to none by explicit cancel.
type Service struct {
	api      API
	timeline Timeline
	status   func() order.Status
	orderID  types.ID

	mu           sync.Mutex
	request      *Request
	quote        Quote
	confirmation ConfirmationStatus
	showing      bool
}

func NewService(api API, timeline Timeline, orderID types.ID, status func() order.Status) *Service {
	return &Service{
		api:          api,
		timeline:     timeline,
		status:       status,
		orderID:      orderID,
		confirmation: ConfirmationPending,
	}
}

// Request quotes the fare adjustment and submits the modification to
// the driver. On any network failure the negotiation aborts back to
// none and no system message is appended.
func (s *Service) Request(ctx context.Context, req Request) (Quote, error) {
	if !eligibleStatuses[s.status()] {
		return Quote{}, ErrNotAllowed
	}

	s.mu.Lock()
	if s.request != nil {
		s.mu.Unlock()
		return Quote{}, ErrInFlight
	}
	r := req
	s.request = &r
	s.confirmation = ConfirmationPending
	s.mu.Unlock()

	quote, err := s.api.QuoteFareAdjustment(ctx, s.orderID, req)
	if err != nil {
		s.reset()
		return Quote{}, err
	}
	if err := s.api.RequestTripModification(ctx, s.orderID, req); err != nil {
		s.reset()
		return Quote{}, err
	}

	s.mu.Lock()
	s.quote = quote
	s.showing = true
	s.mu.Unlock()

	s.timeline.AppendSystem(summarize(req, quote))
	return quote, nil
}

// Resolve records the driver's answer to the in-flight request.
func (s *Service) Resolve(status ConfirmationStatus) error {
	if status != ConfirmationAccepted && status != ConfirmationDeclined {
		return fmt.Errorf("cannot resolve to %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.request == nil {
		return ErrNoRequest
	}
	s.confirmation = status
	return nil
}

// Cancel clears the negotiation entirely; always succeeds, no network
// call.
func (s *Service) Cancel() {
	s.reset()
}

func (s *Service) reset() {
	s.mu.Lock()
	s.request = nil
	s.quote = Quote{}
	s.confirmation = ConfirmationPending
	s.showing = false
	s.mu.Unlock()
}

func (s *Service) Confirmation() ConfirmationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmation
}

func (s *Service) Adjustment() types.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote.Adjustment
}

func (s *Service) Showing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showing
}

// Current returns a copy of the in-flight request, if any.
func (s *Service) Current() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.request == nil {
		return Request{}, false
	}
	return *s.request, true
}

func summarize(req Request, quote Quote) string {
	msg := fmt.Sprintf("Trip modification requested: %s (fare adjustment %s)",
		req.Type.Describe(), quote.Adjustment.Signed())
	if req.Notes != "" {
		msg += ". Note: " + req.Notes
	}
	return msg
}
