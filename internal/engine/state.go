// README: Read-only view of everything the engine exposes to its caller.
package engine

import (
	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/location"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/modules/tripmod"
)

type State struct {
	Order            *order.Order
	Messages         []chat.Message
	UnreadCount      int
	MatchingProgress float64
	Confirmation     tripmod.ConfirmationStatus
	FareAdjustment   string // signed two-decimal rendering
	Typing           bool
	CanSend          bool
	Stopped          bool
	// DriverDistanceKm is the great-circle distance from the driver's
	// last fix to the pickup point; nil until a fix arrives.
	DriverDistanceKm *float64
}

// State assembles one consistent-enough snapshot for the caller. Each
// field is read from its owning service; the engine never mutates any
// of them here.
func (e *Engine) State() State {
	st := State{
		Messages:         e.Messages(),
		UnreadCount:      e.UnreadCount(),
		MatchingProgress: e.MatchingProgress(),
		Confirmation:     e.Confirmation(),
		FareAdjustment:   e.FareAdjustment().Signed(),
		Typing:           e.Typing(),
		CanSend:          e.CanSend(),
		Stopped:          e.Stopped(),
	}
	if o, ok := e.Order(); ok {
		st.Order = &o
		if o.Driver != nil && o.Driver.Location != nil {
			d := location.DistanceKm(*o.Driver.Location, o.Pickup)
			st.DriverDistanceKm = &d
		}
	}
	return st
}
