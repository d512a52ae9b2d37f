package model

import (
	"strings"
	"time"
)

// Decision is the admission outcome recorded on a report
type Decision string

const (
	DecisionVerified Decision = "VERIFIED" // Publicly visible, eligible for fan-out
	DecisionPending  Decision = "PENDING"  // Publicly visible, awaiting community signal
	DecisionFlagged  Decision = "FLAGGED"  // Shadow-banned: visible to its author only
)

// ReportStatus tracks the lifecycle of the underlying civic issue
type ReportStatus string

const (
	StatusOpen       ReportStatus = "OPEN"
	StatusInProgress ReportStatus = "IN_PROGRESS"
	StatusResolved   ReportStatus = "RESOLVED"
)

// TagUrgent marks a report for immediate fan-out regardless of its decision
const TagUrgent = "Urgent"

// Report is a citizen-submitted civic issue
type Report struct {
	ID          string        `json:"id" gorm:"primaryKey;size:36"`
	AuthorID    string        `json:"author_id" gorm:"size:64;index;not null"`
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description"`
	Category    string        `json:"category" gorm:"size:64;index"`
	Tags        []string      `json:"tags,omitempty" gorm:"serializer:json"`
	Location    Location      `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Media       []string      `json:"media" gorm:"serializer:json"`    // Storage references (URLs or object keys)
	Metadata    PhotoMetadata `json:"metadata" gorm:"serializer:json"` // Normalized capture metadata, kept so trust is reproducible
	Trust       Trust         `json:"trust" gorm:"embedded;embeddedPrefix:trust_"`
	Status      ReportStatus  `json:"status" gorm:"size:16;default:OPEN"`
	Upvotes     int           `json:"upvotes" gorm:"not null;default:0"`
	Downvotes   int           `json:"downvotes" gorm:"not null;default:0"`
	NetVotes    int           `json:"net_votes" gorm:"not null;default:0;index"` // Upvotes minus downvotes
	ChatRoomID  string        `json:"chat_room_id" gorm:"size:48"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index"`
}

// IsUrgent reports whether the report carries the Urgent tag (case-insensitive)
func (r *Report) IsUrgent() bool {
	for _, tag := range r.Tags {
		if strings.EqualFold(strings.TrimSpace(tag), TagUrgent) {
			return true
		}
	}
	return false
}

// Location is the reported position of the issue
type Location struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Geohash           string  `json:"geohash" gorm:"size:12;index"`
	GPSAccuracyMeters float64 `json:"gps_accuracy_meters"`
}

// Trust is the admission record written once at creation
type Trust struct {
	Score        int          `json:"score"`
	Decision     Decision     `json:"decision" gorm:"size:16;index"`
	ChecksPassed []string     `json:"checks_passed" gorm:"serializer:json"`
	Checks       []TrustCheck `json:"checks" gorm:"serializer:json"`
	AIReason     string       `json:"ai_reason,omitempty"`
	AIDeduction  int          `json:"ai_deduction"`
	EvaluatedAt  *time.Time   `json:"evaluated_at,omitempty"` // Evaluation clock used by the scorer
}

// Admitted reports whether an admission decision has been recorded
func (t Trust) Admitted() bool {
	return t.Decision != ""
}

// CheckID identifies one of the trust rules
type CheckID string

const (
	CheckGPSPresent    CheckID = "GPS_PRESENT"
	CheckGPSAccuracy   CheckID = "GPS_ACCURACY"
	CheckFreshness     CheckID = "FRESHNESS"
	CheckNoEditing     CheckID = "NO_EDITING"
	CheckLocationMatch CheckID = "LOCATION_MATCH"
)

// TrustCheck is the outcome of a single weighted rule
type TrustCheck struct {
	ID        CheckID `json:"id"`
	Label     string  `json:"label"`
	Pass      bool    `json:"pass"`
	Points    int     `json:"points"`     // Points awarded (0 when failed)
	MaxPoints int     `json:"max_points"` // Weight of the rule
	Detail    string  `json:"detail"`
}

// PassedIDs returns the ids of the passing checks in evaluation order
func PassedIDs(checks []TrustCheck) []string {
	passed := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.Pass {
			passed = append(passed, string(c.ID))
		}
	}
	return passed
}

// ReportVolunteer records a user who already volunteered for (or was processed for) a report
type ReportVolunteer struct {
	ReportID  string    `json:"report_id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is a single user's vote on a report
type Vote struct {
	ReportID  string    `json:"report_id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"primaryKey;size:64"`
	Direction int       `json:"direction"` // +1 upvote, -1 downvote
	UpdatedAt time.Time `json:"updated_at"`
}
