// README: JSON views of engine state for the HTTP surface.
package http

import (
	"time"

	"ridetrack/internal/engine"
	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/modules/tripmod"
	"ridetrack/internal/types"
)

type pointView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type moneyView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type driverView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Vehicle    string     `json:"vehicle"`
	Rating     float64    `json:"rating"`
	Location   *pointView `json:"location,omitempty"`
	ETASeconds *int64     `json:"eta_seconds,omitempty"`
}

type orderView struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	ServiceType    string      `json:"service_type"`
	Pickup         pointView   `json:"pickup"`
	Destination    *pointView  `json:"destination,omitempty"`
	Stops          []pointView `json:"stops,omitempty"`
	EstimatedPrice moneyView   `json:"estimated_price"`
	ActualPrice    *moneyView  `json:"actual_price,omitempty"`
	Driver         *driverView `json:"driver,omitempty"`
}

type stateViewBody struct {
	Order            *orderView        `json:"order,omitempty"`
	Messages         []messageViewBody `json:"messages"`
	UnreadCount      int               `json:"unread_count"`
	MatchingProgress float64           `json:"matching_progress"`
	Confirmation     string            `json:"driver_confirmation"`
	FareAdjustment   string            `json:"fare_adjustment"`
	Typing           bool              `json:"typing"`
	CanSend          bool              `json:"can_send"`
	Stopped          bool              `json:"stopped"`
	DriverDistanceKm *float64          `json:"driver_distance_km,omitempty"`
}

type messageViewBody struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderType string    `json:"sender_type"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	IsRead     bool      `json:"is_read"`
}

type quoteViewBody struct {
	Adjustment       moneyView `json:"adjustment"`
	AdjustmentSigned string    `json:"adjustment_signed"`
	NewTotal         moneyView `json:"new_total"`
}

func pointViewFrom(p types.Point) pointView {
	return pointView{Lat: p.Lat, Lng: p.Lng}
}

func moneyViewFrom(m types.Money) moneyView {
	return moneyView{Amount: m.Amount, Currency: m.Currency}
}

func orderViewFrom(o order.Order) orderView {
	out := orderView{
		ID:             string(o.ID),
		Status:         string(o.Status),
		ServiceType:    o.ServiceType,
		Pickup:         pointViewFrom(o.Pickup),
		EstimatedPrice: moneyViewFrom(o.EstimatedPrice),
	}
	if o.Destination != nil {
		p := pointViewFrom(*o.Destination)
		out.Destination = &p
	}
	for _, s := range o.Stops {
		out.Stops = append(out.Stops, pointViewFrom(s))
	}
	if o.ActualPrice != nil {
		m := moneyViewFrom(*o.ActualPrice)
		out.ActualPrice = &m
	}
	if o.Driver != nil {
		d := driverView{
			ID:      string(o.Driver.ID),
			Name:    o.Driver.Name,
			Phone:   o.Driver.Phone,
			Vehicle: o.Driver.Vehicle,
			Rating:  o.Driver.Rating,
		}
		if o.Driver.Location != nil {
			p := pointViewFrom(*o.Driver.Location)
			d.Location = &p
		}
		if o.Driver.EstimatedArrival != nil {
			secs := int64(o.Driver.EstimatedArrival.Seconds())
			d.ETASeconds = &secs
		}
		out.Driver = &d
	}
	return out
}

func messageView(m chat.Message) messageViewBody {
	return messageViewBody{
		ID:         m.ID,
		SenderID:   string(m.SenderID),
		SenderType: string(m.SenderType),
		Type:       string(m.Type),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		IsRead:     m.IsRead,
	}
}

func quoteView(q tripmod.Quote) quoteViewBody {
	return quoteViewBody{
		Adjustment:       moneyViewFrom(q.Adjustment),
		AdjustmentSigned: q.Adjustment.Signed(),
		NewTotal:         moneyViewFrom(q.NewTotal),
	}
}

func stateView(st engine.State) stateViewBody {
	out := stateViewBody{
		Messages:         make([]messageViewBody, 0, len(st.Messages)),
		UnreadCount:      st.UnreadCount,
		MatchingProgress: st.MatchingProgress,
		Confirmation:     string(st.Confirmation),
		FareAdjustment:   st.FareAdjustment,
		Typing:           st.Typing,
		CanSend:          st.CanSend,
		Stopped:          st.Stopped,
		DriverDistanceKm: st.DriverDistanceKm,
	}
	if st.Order != nil {
		o := orderViewFrom(*st.Order)
		out.Order = &o
	}
	for _, m := range st.Messages {
		out.Messages = append(out.Messages, messageView(m))
	}
	return out
}
