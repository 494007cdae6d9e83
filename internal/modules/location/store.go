// README: Optional redis GEO fan-out of the freshest driver fix.
package location

import (
	"context"

	"github.com/redis/go-redis/v9"

	"ridetrack/internal/types"
)

const fixGeoKey = "ridetrack:driver_fix"

// Store publishes the latest driver position per order to a redis GEO
// set so dashboards and dispatch tooling can read it without hitting
// the tracking backend. Best effort only.
type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) PublishFix(ctx context.Context, orderID types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, fixGeoKey, &redis.GeoLocation{
		Name:      string(orderID),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemoveFix(ctx context.Context, orderID types.ID) error {
	return s.redis.ZRem(ctx, fixGeoKey, string(orderID)).Err()
}
