package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/admission"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/dispatch"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/score"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/visibility"
)

// ErrNotFound is returned for missing reports and reports the viewer may not see
var ErrNotFound = store.ErrNotFound

// ErrUnauthenticated is returned when an operation needs a signed-in viewer
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when the viewer may see a report but not change it
var ErrForbidden = errors.New("not allowed")

// ErrInvalidLocation is returned for out-of-range coordinates
var ErrInvalidLocation = errors.New("invalid location")

// Store is the persistence the service reads and writes
type Store interface {
	GetReport(ctx context.Context, id string) (*model.Report, error)
	GetReports(ctx context.Context, ids []string) (map[string]model.Report, error)
	ListReports(ctx context.Context, filter store.ReportFilter) ([]model.Report, error)
	ReportsInBounds(ctx context.Context, bounds []geo.Bound, viewerID string) ([]model.Report, error)
	SetTrustIfUnadmitted(ctx context.Context, id string, trust model.Trust) (bool, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
	Vote(ctx context.Context, reportID, userID string, direction int) (store.VoteTally, error)
	AddVolunteer(ctx context.Context, reportID, userID string) error
	GetChatRoom(ctx context.Context, id string) (*model.ChatRoom, error)
}

// Enqueuer schedules background jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, kind, key string) (bool, error)
}

// Service implements the read and interaction surface
type Service struct {
	store   Store
	scorer  *score.Scorer
	advisor *llm.Advisor
	queue   Enqueuer
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service; advisor and queue may be nil
func NewService(st Store, advisor *llm.Advisor, queue Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		scorer:  score.NewScorer(),
		advisor: advisor,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
}

// Feed lists reports visible to viewerID, newest first
func (s *Service) Feed(ctx context.Context, viewerID string, filter store.ReportFilter) ([]model.Report, error) {
	filter.ForViewer = true
	filter.ViewerID = viewerID
	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(reports, viewerID), nil
}

// Pin is the map marker projection of a report
type Pin struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Decision  model.Decision `json:"decision"`
	Urgent    bool           `json:"urgent"`
	Distance  float64        `json:"distance_meters"`
}

// MapPins lists visible reports within radiusMeters of center, nearest first
func (s *Service) MapPins(ctx context.Context, viewerID string, center geo.Point, radiusMeters float64, limit int) ([]Pin, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("map center %v: %w", center, ErrInvalidLocation)
	}
	if radiusMeters <= 0 {
		radiusMeters = 2000
	}

	reports, err := s.store.ReportsInBounds(ctx, geo.QueryBounds(center, radiusMeters), viewerID)
	if err != nil {
		return nil, err
	}

	pins := make([]Pin, 0, len(reports))
	for _, r := range visibility.Filter(reports, viewerID) {
		p := geo.Point{Lat: r.Location.Latitude, Lng: r.Location.Longitude}
		d := geo.Haversine(center, p)
		if d > radiusMeters {
			continue
		}
		pins = append(pins, Pin{
			ID:        r.ID,
			Title:     r.Title,
			Category:  r.Category,
			Latitude:  p.Lat,
			Longitude: p.Lng,
			Decision:  r.Trust.Decision,
			Urgent:    r.IsUrgent(),
			Distance:  d,
		})
	}

	sort.Slice(pins, func(i, j int) bool { return pins[i].Distance < pins[j].Distance })
	if limit > 0 && len(pins) > limit {
		pins = pins[:limit]
	}
	return pins, nil
}

// Get fetches one report; an invisible report is reported as not found
func (s *Service) Get(ctx context.Context, viewerID, id string) (*model.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.IsVisible(report, viewerID) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return report, nil
}

// ChatRoom returns the room of a report the viewer can see
func (s *Service) ChatRoom(ctx context.Context, viewerID, reportID string) (*model.ChatRoom, error) {
	report, err := s.Get(ctx, viewerID, reportID)
	if err != nil {
		return nil, err
	}
	return s.store.GetChatRoom(ctx, report.ChatRoomID)
}

// Notifications lists the viewer's inbox, hiding records whose report is not visible
func (s *Service) Notifications(ctx context.Context, viewerID string, limit int) ([]model.NotificationRecord, error) {
	if viewerID == "" {
		return nil, ErrUnauthenticated
	}

	records, err := s.store.ListNotifications(ctx, viewerID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ReportID)
	}
	reports, err := s.store.GetReports(ctx, ids)
	if err != nil {
		return nil, err
	}

	visible := make([]model.NotificationRecord, 0, len(records))
	for _, r := range records {
		report, ok := reports[r.ReportID]
		if ok && visibility.IsVisible(&report, viewerID) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// MarkRead marks one of the viewer's notifications read
func (s *Service) MarkRead(ctx context.Context, viewerID string, id uint) error {
	if viewerID == "" {
		return ErrUnauthenticated
	}
	return s.store.MarkNotificationRead(ctx, viewerID, id)
}

// Vote records the viewer's vote on a visible report
func (s *Service) Vote(ctx context.Context, viewerID, reportID string, direction int) (store.VoteTally, error) {
	if viewerID == "" {
		return store.VoteTally{}, ErrUnauthenticated
	}
	if _, err := s.Get(ctx, viewerID, reportID); err != nil {
		return store.VoteTally{}, err
	}
	return s.store.Vote(ctx, reportID, viewerID, direction)
}

// Volunteer records the viewer as a volunteer; volunteers are not notified about the report
func (s *Service) Volunteer(ctx context.Context, viewerID, reportID string) error {
	if viewerID == "" {
		return ErrUnauthenticated
	}
	if _, err := s.Get(ctx, viewerID, reportID); err != nil {
		return err
	}
	return s.store.AddVolunteer(ctx, reportID, viewerID)
}

// VerifyInput is the upload/verify request
type VerifyInput struct {
	ReportID    string  `json:"reportId"`
	ReportedLat float64 `json:"reportedLat"`
	ReportedLng float64 `json:"reportedLng"`
	Image       []byte  `json:"imageBytes,omitempty"`
}

// VerifyResult is the upload/verify response
type VerifyResult struct {
	TrustScore   int      `json:"trustScore"`
	IsVerified   bool     `json:"isVerified"`
	ChecksPassed []string `json:"checksPassed"`
	Decision     string   `json:"decision"`
}

// Verify scores a report's stored metadata against the given location.
// Trust is written only when the report has no decision yet, and only by
// its author; an admitted report returns its recorded trust unchanged.
func (s *Service) Verify(ctx context.Context, viewerID string, in VerifyInput) (VerifyResult, error) {
	if viewerID == "" {
		return VerifyResult{}, ErrUnauthenticated
	}
	report, err := s.Get(ctx, viewerID, in.ReportID)
	if err != nil {
		return VerifyResult{}, err
	}
	if report.Trust.Admitted() {
		return verifyResult(report.Trust), nil
	}
	if report.AuthorID != viewerID {
		return VerifyResult{}, fmt.Errorf("verify report %s: %w", report.ID, ErrForbidden)
	}

	reported := geo.Point{Lat: in.ReportedLat, Lng: in.ReportedLng}
	if !reported.Valid() {
		return VerifyResult{}, fmt.Errorf("reported location %v: %w", reported, ErrInvalidLocation)
	}

	at := s.now()
	scored := s.scorer.ScoreAt(report.Metadata, reported.Lat, reported.Lng, at)
	verdict := s.advisor.Check(ctx, llm.AssessRequest{
		Image:       in.Image,
		Title:       report.Title,
		Category:    report.Category,
		Description: report.Description,
	})
	trust := admission.Admit(scored, verdict).Trust(at)

	written, err := s.store.SetTrustIfUnadmitted(ctx, report.ID, trust)
	if err != nil {
		return VerifyResult{}, err
	}
	if !written {
		// another verify won the race
		current, err := s.store.GetReport(ctx, report.ID)
		if err != nil {
			return VerifyResult{}, err
		}
		return verifyResult(current.Trust), nil
	}

	report.Trust = trust
	s.logger.Info("report verified", "report", report.ID, "score", trust.Score, "decision", trust.Decision)

	if s.queue != nil && dispatch.ShouldDispatch(report) {
		if _, err := s.queue.Enqueue(context.WithoutCancel(ctx), dispatch.JobKind, report.ID); err != nil {
			s.logger.Error("failed to enqueue dispatch", "report", report.ID, "error", err)
		}
	}
	return verifyResult(trust), nil
}

func verifyResult(t model.Trust) VerifyResult {
	passed := t.ChecksPassed
	if passed == nil {
		passed = []string{}
	}
	return VerifyResult{
		TrustScore:   t.Score,
		IsVerified:   t.Decision == model.DecisionVerified,
		ChecksPassed: passed,
		Decision:     string(t.Decision),
	}
}
