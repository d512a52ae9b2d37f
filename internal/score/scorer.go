package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// Rule weights (sum to 100)
const (
	PointsGPSPresent    = 30
	PointsGPSAccuracy   = 25
	PointsFreshness     = 20
	PointsNoEditing     = 15
	PointsLocationMatch = 10
)

// Rule thresholds
const (
	MaxAccuracyMeters      = 20.0
	FreshnessWindow        = 5 * time.Minute
	MaxLocationDriftMeters = 50.0
)

// editingSignatures are lowercase fragments of known photo-editing software tags
var editingSignatures = []string{
	"photoshop",
	"lightroom",
	"gimp",
	"snapseed",
	"picsart",
	"facetune",
	"canva",
	"pixlr",
	"vsco",
	"affinity photo",
	"airbrush",
	"meitu",
	"faceapp",
}

// Result is the outcome of a scoring run
type Result struct {
	Score  int                `json:"score"`
	Checks []model.TrustCheck `json:"checks"`
}

// Scorer calculates the metadata trust score. It is deterministic:
// the same metadata, reported location and evaluation time always
// produce the same result.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer that evaluates freshness against the wall clock
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerWithClock creates a scorer with an injected clock
func NewScorerWithClock(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score scores metadata against the reported issue location at the current time
func (s *Scorer) Score(meta model.PhotoMetadata, reportedLat, reportedLng float64) Result {
	return s.ScoreAt(meta, reportedLat, reportedLng, s.now())
}

// ScoreAt scores metadata against the reported issue location at evaluation time at
func (s *Scorer) ScoreAt(meta model.PhotoMetadata, reportedLat, reportedLng float64, at time.Time) Result {
	gps, hasGPS := gpsPoint(meta)

	checks := []model.TrustCheck{
		s.checkGPSPresent(gps, hasGPS),
		s.checkGPSAccuracy(meta),
		s.checkFreshness(meta, at),
		s.checkNoEditing(meta),
		s.checkLocationMatch(gps, hasGPS, geo.Point{Lat: reportedLat, Lng: reportedLng}),
	}

	total := 0
	for _, c := range checks {
		total += c.Points
	}

	return Result{
		Score:  clamp(total, 0, 100),
		Checks: checks,
	}
}

// checkGPSPresent requires finite latitude and longitude (30 points)
func (s *Scorer) checkGPSPresent(gps geo.Point, ok bool) model.TrustCheck {
	if !ok {
		return fail(model.CheckGPSPresent, "GPS coordinates present", PointsGPSPresent, "No GPS coordinates in photo metadata")
	}
	return pass(model.CheckGPSPresent, "GPS coordinates present", PointsGPSPresent,
		fmt.Sprintf("Photo tagged at %.6f, %.6f", gps.Lat, gps.Lng))
}

// checkGPSAccuracy requires a reported accuracy below 20 m (25 points)
func (s *Scorer) checkGPSAccuracy(meta model.PhotoMetadata) model.TrustCheck {
	const label = "GPS accuracy under 20 m"

	if meta.GPS == nil || meta.GPS.Accuracy == nil || math.IsNaN(*meta.GPS.Accuracy) {
		return fail(model.CheckGPSAccuracy, label, PointsGPSAccuracy, "GPS accuracy not reported")
	}

	acc := *meta.GPS.Accuracy
	if acc < 0 || acc >= MaxAccuracyMeters {
		return fail(model.CheckGPSAccuracy, label, PointsGPSAccuracy, fmt.Sprintf("Accuracy %.1f m", acc))
	}
	return pass(model.CheckGPSAccuracy, label, PointsGPSAccuracy, fmt.Sprintf("Accuracy %.1f m", acc))
}

// checkFreshness requires the capture to be within 5 minutes of evaluation (20 points)
func (s *Scorer) checkFreshness(meta model.PhotoMetadata, at time.Time) model.TrustCheck {
	const label = "Captured within 5 minutes"

	if meta.CapturedAt == nil {
		return fail(model.CheckFreshness, label, PointsFreshness, "Capture time missing")
	}

	age := at.Sub(*meta.CapturedAt)
	if age < 0 {
		age = -age
	}
	detail := fmt.Sprintf("Captured %s from evaluation", age.Round(time.Second))

	if age > FreshnessWindow {
		return fail(model.CheckFreshness, label, PointsFreshness, detail)
	}
	return pass(model.CheckFreshness, label, PointsFreshness, detail)
}

// checkNoEditing rejects known editing-software signatures (15 points)
func (s *Scorer) checkNoEditing(meta model.PhotoMetadata) model.TrustCheck {
	const label = "No editing software detected"

	candidates := []string{meta.Software}
	for _, key := range []string{"Software", "ProcessingSoftware", "CreatorTool", "HostComputer"} {
		candidates = append(candidates, meta.EXIF[key])
	}

	for _, c := range candidates {
		if sig := editingSignature(c); sig != "" {
			return fail(model.CheckNoEditing, label, PointsNoEditing, fmt.Sprintf("Editing software signature: %s", c))
		}
	}
	return pass(model.CheckNoEditing, label, PointsNoEditing, "No editing signature found")
}

// checkLocationMatch requires photo GPS within 50 m of the reported location (10 points)
func (s *Scorer) checkLocationMatch(gps geo.Point, ok bool, reported geo.Point) model.TrustCheck {
	const label = "Photo taken at reported location"

	if !ok {
		return fail(model.CheckLocationMatch, label, PointsLocationMatch, "No photo GPS to compare")
	}
	if !reported.Valid() {
		return fail(model.CheckLocationMatch, label, PointsLocationMatch, "Reported location invalid")
	}

	d := geo.Haversine(gps, reported)
	detail := fmt.Sprintf("%.1f m from reported location", d)
	if d > MaxLocationDriftMeters {
		return fail(model.CheckLocationMatch, label, PointsLocationMatch, detail)
	}
	return pass(model.CheckLocationMatch, label, PointsLocationMatch, detail)
}

// editingSignature returns the matched signature, or "" when tag is clean
func editingSignature(tag string) string {
	lower := strings.ToLower(tag)
	if lower == "" {
		return ""
	}
	for _, sig := range editingSignatures {
		if strings.Contains(lower, sig) {
			return sig
		}
	}
	return ""
}

func gpsPoint(meta model.PhotoMetadata) (geo.Point, bool) {
	if meta.GPS == nil || meta.GPS.Latitude == nil || meta.GPS.Longitude == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *meta.GPS.Latitude, Lng: *meta.GPS.Longitude}
	return p, p.Valid()
}

func pass(id model.CheckID, label string, points int, detail string) model.TrustCheck {
	return model.TrustCheck{ID: id, Label: label, Pass: true, Points: points, MaxPoints: points, Detail: detail}
}

func fail(id model.CheckID, label string, points int, detail string) model.TrustCheck {
	return model.TrustCheck{ID: id, Label: label, Pass: false, Points: 0, MaxPoints: points, Detail: detail}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
