// README: Trip-modification request, fare quote, and driver confirmation types.
package tripmod

import "ridetrack/internal/types"

type ModificationType string

const (
	ChangeDestination ModificationType = "change_destination"
	AddStops          ModificationType = "add_stops"
	ChangeRoute       ModificationType = "change_route"
	Other             ModificationType = "other"
)

// Request is immutable once submitted.
type Request struct {
	Type           ModificationType
	NewDestination *types.Point
	ExtraStops     []types.Point
	Notes          string
}

type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationAccepted ConfirmationStatus = "accepted"
	ConfirmationDeclined ConfirmationStatus = "declined"
)

type BreakdownLine struct {
	Label  string
	Amount types.Money
}

type Quote struct {
	Adjustment types.Money
	NewTotal   types.Money
	Breakdown  []BreakdownLine
}

func (t ModificationType) Describe() string {
	switch t {
	case ChangeDestination:
		return "change destination"
	case AddStops:
		return "add stops"
	case ChangeRoute:
		return "change route"
	default:
		return "other change"
	}
}
