package submit

import (
	"errors"
	"math"
	"strings"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/metadata"
)

// Validation errors, checked in this order. Messages are shown to users.
var (
	ErrInvalidAuthor      = errors.New("Invalid author")
	ErrInvalidTitle       = errors.New("Invalid title")
	ErrInvalidDescription = errors.New("Invalid description")
	ErrInvalidCategory    = errors.New("Invalid category")
	ErrInvalidMedia       = errors.New("Invalid media")
	ErrPoorGPSLock        = errors.New("Poor GPS Lock")
	ErrInvalidLocation    = errors.New("Invalid location")
)

// DefaultMaxAccuracyMeters is the worst GPS accuracy accepted at submission
const DefaultMaxAccuracyMeters = 50.0

// Input is the submission payload. Required: title, description,
// category, media, location and verification accuracy. Optional: tags,
// capture metadata and the image bytes used by the authenticity check.
type Input struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Tags         []string            `json:"tags,omitempty"`
	Media        []string            `json:"media"`
	Location     *Location           `json:"location"`
	Verification Verification        `json:"verificationInput"`
	Capture      metadata.RawCapture `json:"capture"`
	Image        []byte              `json:"image,omitempty"` // Base64 in JSON
}

// Location is the reported position of the issue
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Verification carries the device fix quality at submission time
type Verification struct {
	GPSAccuracy *float64 `json:"gpsAccuracy"`
}

// Validate returns the first violated rule
func (in Input) Validate(maxAccuracyMeters float64) error {
	if maxAccuracyMeters <= 0 {
		maxAccuracyMeters = DefaultMaxAccuracyMeters
	}

	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidTitle
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrInvalidDescription
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrInvalidCategory
	}
	if len(in.Media) == 0 {
		return ErrInvalidMedia
	}
	for _, m := range in.Media {
		if strings.TrimSpace(m) == "" {
			return ErrInvalidMedia
		}
	}

	acc := in.Verification.GPSAccuracy
	if acc == nil || math.IsNaN(*acc) || *acc < 0 || *acc > maxAccuracyMeters {
		return ErrPoorGPSLock
	}

	if _, ok := in.Point(); !ok {
		return ErrInvalidLocation
	}
	return nil
}

// Point returns the reported location when both coordinates are valid
func (in Input) Point() (geo.Point, bool) {
	if in.Location == nil || in.Location.Latitude == nil || in.Location.Longitude == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *in.Location.Latitude, Lng: *in.Location.Longitude}
	return p, p.Valid()
}
