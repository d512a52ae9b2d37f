package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// ReportFilter narrows report listings
type ReportFilter struct {
	Category string
	Status   model.ReportStatus
	Limit    int
	Offset   int

	// ForViewer hides FLAGGED reports not authored by ViewerID before
	// paging, so a page is never cut short by rows the viewer cannot see
	ForViewer bool
	ViewerID  string
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f ReportFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

// CreateReportBundle writes a report, its chat room and the room's first
// message in one transaction. Nothing is written if any insert fails.
func (s *Store) CreateReportBundle(ctx context.Context, report *model.Report, room *model.ChatRoom, first *model.Message) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Create(report).Error; err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := tx.db.Create(room).Error; err != nil {
			return fmt.Errorf("create chat room: %w", err)
		}
		if err := tx.db.Create(first).Error; err != nil {
			return fmt.Errorf("create system message: %w", err)
		}
		return nil
	})
}

// GetReport loads a report by id
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "report "+id)
	}
	return &report, nil
}

// GetReports loads reports by id; missing ids are skipped
func (s *Store) GetReports(ctx context.Context, ids []string) (map[string]model.Report, error) {
	out := make(map[string]model.Report, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var reports []model.Report
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	for _, r := range reports {
		out[r.ID] = r
	}
	return out, nil
}

// ListReports returns reports newest first
func (s *Store) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	q := s.db.WithContext(ctx).Model(&model.Report{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ForViewer {
		q = q.Scopes(visibleTo(filter.ViewerID))
	}

	var reports []model.Report
	err := q.Order("created_at DESC").Order("id").
		Limit(filter.limit()).Offset(filter.Offset).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ReportsInBounds returns every report whose location geohash falls in
// any bound, leaving out FLAGGED reports not authored by viewerID. Callers
// refine by distance and apply their own limit.
func (s *Store) ReportsInBounds(ctx context.Context, bounds []geo.Bound, viewerID string) ([]model.Report, error) {
	seen := make(map[string]bool)
	var out []model.Report
	for _, b := range bounds {
		var batch []model.Report
		err := s.db.WithContext(ctx).
			Where("location_geohash >= ? AND location_geohash < ?", b.Start, b.End).
			Scopes(visibleTo(viewerID)).
			Order("location_geohash").
			Find(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("query reports in %s: %w", b.Start, err)
		}
		for _, r := range batch {
			if !seen[r.ID] {
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// visibleTo mirrors visibility.IsVisible in SQL
func visibleTo(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == "" {
			return db.Where("(trust_decision IS NULL OR trust_decision <> ?)", model.DecisionFlagged)
		}
		return db.Where("(trust_decision IS NULL OR trust_decision <> ? OR author_id = ?)", model.DecisionFlagged, viewerID)
	}
}

// SetTrustIfUnadmitted records trust on a report that has no decision yet.
// It returns false, leaving the row untouched, when a decision exists.
func (s *Store) SetTrustIfUnadmitted(ctx context.Context, id string, trust model.Trust) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Report{}).
		Where("id = ? AND (trust_decision = '' OR trust_decision IS NULL)", id).
		Select("trust_score", "trust_decision", "trust_checks_passed", "trust_checks",
			"trust_ai_reason", "trust_ai_deduction", "trust_evaluated_at").
		Updates(&model.Report{Trust: trust})
	if res.Error != nil {
		return false, fmt.Errorf("set trust on %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateReportStatus moves a report through OPEN, IN_PROGRESS, RESOLVED
func (s *Store) UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Report{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update status of %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddVolunteer records that userID volunteered for a report
func (s *Store) AddVolunteer(ctx context.Context, reportID, userID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ReportVolunteer{ReportID: reportID, UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("add volunteer: %w", err)
	}
	return nil
}

// VolunteerIDs returns the users recorded as volunteers for a report
func (s *Store) VolunteerIDs(ctx context.Context, reportID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.ReportVolunteer{}).
		Where("report_id = ?", reportID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	return ids, nil
}
