// README: Driver position fix returned by the tracking backend.
package location

import (
	"time"

	"ridetrack/internal/modules/order"
	"ridetrack/internal/types"
)

// Fix is one driver-position sample. EstimatedArrival is nil when the
// backend has no ETA yet; that absence is surfaced as-is rather than
// defaulted.
type Fix struct {
	Position         types.Point
	EstimatedArrival *time.Duration
	Status           order.Status
}
