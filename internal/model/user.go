package model

import "time"

// UserRole classifies the recipients of geofenced notifications
type UserRole string

const (
	RoleCitizen   UserRole = "citizen"
	RoleVolunteer UserRole = "volunteer"
	RoleNGO       UserRole = "ngo"
)

// User is a potential recipient of geofenced notifications
type User struct {
	ID        string       `json:"id" gorm:"primaryKey;size:64"`
	Name      string       `json:"name"`
	Role      UserRole     `json:"role" gorm:"size:16"`
	Location  UserLocation `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	PushToken string       `json:"push_token,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// UserLocation is the last known position of a user
type UserLocation struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Geohash   string   `json:"geohash" gorm:"size:12;index"`
}

// HasPreciseLocation reports whether both coordinates are known
func (u User) HasPreciseLocation() bool {
	return u.Location.Latitude != nil && u.Location.Longitude != nil
}

// NotificationRecord is an in-app notification, one per targeted recipient
type NotificationRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:64;not null;uniqueIndex:idx_notification_report_user,priority:2;index"`
	ReportID  string    `json:"report_id" gorm:"size:36;not null;uniqueIndex:idx_notification_report_user,priority:1"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
