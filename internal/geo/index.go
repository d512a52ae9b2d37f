package geo

import (
	"context"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// SpatialIndex is the coarse candidate source for geofenced fan-out.
// Implementations may over-approximate; callers refine with Haversine.
type SpatialIndex interface {
	// UsersInBound returns users whose geohash lies in [bound.Start, bound.End),
	// ordered by geohash
	UsersInBound(ctx context.Context, bound Bound) ([]model.User, error)
}

// UserPoint returns the user's precise position, if known
func UserPoint(u model.User) (Point, bool) {
	if !u.HasPreciseLocation() {
		return Point{}, false
	}
	return Point{Lat: *u.Location.Latitude, Lng: *u.Location.Longitude}, true
}
