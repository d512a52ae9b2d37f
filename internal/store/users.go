package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// SaveUser inserts or replaces a user, deriving the geohash from a precise location
func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	user.Location.Geohash = ""
	if p, ok := geo.UserPoint(*user); ok && p.Valid() {
		user.Location.Geohash = geo.Encode(p)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(user).Error
	if err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateUserLocation records a user's latest precise position
func (s *Store) UpdateUserLocation(ctx context.Context, userID string, p geo.Point) error {
	if !p.Valid() {
		return fmt.Errorf("invalid location %v", p)
	}

	lat, lng := p.Lat, p.Lng
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"location_latitude":  lat,
			"location_longitude": lng,
			"location_geohash":   geo.Encode(p),
		})
	if res.Error != nil {
		return fmt.Errorf("update location of %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// GetUser loads a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &user, nil
}

// UsersInBound implements geo.SpatialIndex with a range scan on the geohash index
func (s *Store) UsersInBound(ctx context.Context, bound geo.Bound) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("location_geohash >= ? AND location_geohash < ?", bound.Start, bound.End).
		Where("location_geohash <> ''").
		Order("location_geohash").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("range query [%s, %s): %w", bound.Start, bound.End, err)
	}
	return users, nil
}

var _ geo.SpatialIndex = (*Store)(nil)
