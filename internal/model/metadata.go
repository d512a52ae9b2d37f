package model

import "time"

// PhotoMetadata is the canonical capture metadata consumed by the trust scorer
type PhotoMetadata struct {
	GPS        *GPSFix           `json:"gps,omitempty"`
	CapturedAt *time.Time        `json:"captured_at,omitempty"`
	Software   string            `json:"software,omitempty"` // Camera/processing software tag
	EXIF       map[string]string `json:"exif,omitempty"`
}

// GPSFix is a device position with its reported horizontal accuracy
type GPSFix struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // Meters
}
