// README: Order aggregate, driver descriptor, and status graph.
package order

import (
	"time"

	"ridetrack/internal/types"
)

type Status string

const (
	StatusPendingMatch   Status = "pending_match"
	StatusDriverAssigned Status = "driver_assigned"
	StatusAccepted       Status = "accepted"
	StatusArrived        Status = "arrived"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusPaid           Status = "paid"
	StatusCancelled      Status = "cancelled"
)

type Order struct {
	ID             types.ID
	Status         Status
	ServiceType    string
	Pickup         types.Point
	Destination    *types.Point
	Stops          []types.Point
	EstimatedPrice types.Money
	ActualPrice    *types.Money
	Driver         *Driver
	CreatedAt      time.Time
}

// Driver is replaced wholesale on every location or order refresh,
// never field-patched outside its owner.
type Driver struct {
	ID               types.ID
	Name             string
	Phone            string
	Vehicle          string
	Rating           float64
	Location         *types.Point
	EstimatedArrival *time.Duration
}

// Transition is emitted once per applied status change.
type Transition struct {
	OrderID types.ID
	From    Status
	To      Status
	At      time.Time
}

// AllowedTransitions represents the order status flow (diagram) as code.
// Cancellation is reachable from any non-terminal status and is handled
// in CanTransition rather than listed per status.
var AllowedTransitions = map[Status][]Status{
	StatusPendingMatch:   {StatusDriverAssigned},
	StatusDriverAssigned: {StatusAccepted},
	StatusAccepted:       {StatusArrived},
	StatusArrived:        {StatusInProgress},
	StatusInProgress:     {StatusCompleted},
	StatusCompleted:      {StatusPaid},
}

// Terminal reports whether tracking stops at this status. Completed is
// terminal for tracking even though settlement may still move it to paid.
func Terminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !Terminal(from)
	}
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
