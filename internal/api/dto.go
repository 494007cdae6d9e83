// README: Wire representations and their conversions to domain types.
package api

import (
	"time"

	"ridetrack/internal/modules/chat"
	"ridetrack/internal/modules/location"
	"ridetrack/internal/modules/order"
	"ridetrack/internal/modules/tripmod"
	"ridetrack/internal/types"
)

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p pointDTO) toDomain() types.Point {
	return types.Point{Lat: p.Lat, Lng: p.Lng}
}

type moneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m moneyDTO) toDomain() types.Money {
	return types.Money{Amount: m.Amount, Currency: m.Currency}
}

type driverDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Vehicle    string    `json:"vehicle"`
	Rating     float64   `json:"rating"`
	Location   *pointDTO `json:"location"`
	ETASeconds *int64    `json:"eta_seconds"`
}

func (d driverDTO) toDomain() order.Driver {
	out := order.Driver{
		ID:      types.ID(d.ID),
		Name:    d.Name,
		Phone:   d.Phone,
		Vehicle: d.Vehicle,
		Rating:  d.Rating,
	}
	if d.Location != nil {
		p := d.Location.toDomain()
		out.Location = &p
	}
	out.EstimatedArrival = secondsToDuration(d.ETASeconds)
	return out
}

type orderDTO struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	ServiceType    string     `json:"service_type"`
	Pickup         pointDTO   `json:"pickup"`
	Destination    *pointDTO  `json:"destination"`
	Stops          []pointDTO `json:"stops"`
	EstimatedPrice moneyDTO   `json:"estimated_price"`
	ActualPrice    *moneyDTO  `json:"actual_price"`
	Driver         *driverDTO `json:"driver"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (o orderDTO) toDomain() order.Order {
	out := order.Order{
		ID:             types.ID(o.ID),
		Status:         order.Status(o.Status),
		ServiceType:    o.ServiceType,
		Pickup:         o.Pickup.toDomain(),
		EstimatedPrice: o.EstimatedPrice.toDomain(),
		CreatedAt:      o.CreatedAt,
	}
	if o.Destination != nil {
		p := o.Destination.toDomain()
		out.Destination = &p
	}
	for _, s := range o.Stops {
		out.Stops = append(out.Stops, s.toDomain())
	}
	if o.ActualPrice != nil {
		m := o.ActualPrice.toDomain()
		out.ActualPrice = &m
	}
	if o.Driver != nil {
		d := o.Driver.toDomain()
		out.Driver = &d
	}
	return out
}

type fixDTO struct {
	Location   pointDTO `json:"location"`
	ETASeconds *int64   `json:"eta_seconds"`
	Status     string   `json:"status"`
}

func (f fixDTO) toDomain() location.Fix {
	return location.Fix{
		Position:         f.Location.toDomain(),
		EstimatedArrival: secondsToDuration(f.ETASeconds),
		Status:           order.Status(f.Status),
	}
}

type messageDTO struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	SenderID    string    `json:"sender_id"`
	SenderType  string    `json:"sender_type"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
	ClientNonce string    `json:"client_nonce"`
}

func (m messageDTO) toDomain() chat.Message {
	return chat.Message{
		ID:          m.ID,
		OrderID:     types.ID(m.OrderID),
		SenderID:    types.ID(m.SenderID),
		SenderType:  chat.SenderType(m.SenderType),
		Type:        chat.MessageType(m.Type),
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		IsRead:      m.IsRead,
		ClientNonce: m.ClientNonce,
	}
}

type pageDTO struct {
	Messages    []messageDTO `json:"messages"`
	HasMore     bool         `json:"has_more"`
	UnreadCount int          `json:"unread_count"`
}

func (p pageDTO) toDomain() chat.Page {
	out := chat.Page{HasMore: p.HasMore, UnreadCount: p.UnreadCount}
	for _, m := range p.Messages {
		out.Messages = append(out.Messages, m.toDomain())
	}
	return out
}

type modificationDTO struct {
	Type           string     `json:"type"`
	NewDestination *pointDTO  `json:"new_destination,omitempty"`
	ExtraStops     []pointDTO `json:"extra_stops,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func modificationDTOFrom(req tripmod.Request) modificationDTO {
	out := modificationDTO{Type: string(req.Type), Notes: req.Notes}
	if req.NewDestination != nil {
		out.NewDestination = &pointDTO{Lat: req.NewDestination.Lat, Lng: req.NewDestination.Lng}
	}
	for _, s := range req.ExtraStops {
		out.ExtraStops = append(out.ExtraStops, pointDTO{Lat: s.Lat, Lng: s.Lng})
	}
	return out
}

type quoteDTO struct {
	Adjustment moneyDTO `json:"adjustment"`
	NewTotal   moneyDTO `json:"new_total"`
	Breakdown  []struct {
		Label  string   `json:"label"`
		Amount moneyDTO `json:"amount"`
	} `json:"breakdown"`
}

func (q quoteDTO) toDomain() tripmod.Quote {
	out := tripmod.Quote{
		Adjustment: q.Adjustment.toDomain(),
		NewTotal:   q.NewTotal.toDomain(),
	}
	for _, b := range q.Breakdown {
		out.Breakdown = append(out.Breakdown, tripmod.BreakdownLine{
			Label:  b.Label,
			Amount: b.Amount.toDomain(),
		})
	}
	return out
}

func secondsToDuration(v *int64) *time.Duration {
	if v == nil {
		return nil
	}
	d := time.Duration(*v) * time.Second
	return &d
}
