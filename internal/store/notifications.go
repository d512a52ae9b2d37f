package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// CreateNotifications writes records in one statement. A record whose
// (report, user) pair already exists is skipped, so re-running a
// dispatch never notifies anyone twice.
func (s *Store) CreateNotifications(ctx context.Context, records []model.NotificationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&records)
	if res.Error != nil {
		return 0, fmt.Errorf("create %d notifications: %w", len(records), res.Error)
	}
	return res.RowsAffected, nil
}

// NotifiedUserIDs returns users who already hold a notification for a report
func (s *Store) NotifiedUserIDs(ctx context.Context, reportID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.NotificationRecord{}).
		Where("report_id = ?", reportID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list notified users: %w", err)
	}
	return ids, nil
}

// ListNotifications returns a user's notifications newest first
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	var records []model.NotificationRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return records, nil
}

// MarkNotificationRead sets isRead on one of the user's notifications
func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&model.NotificationRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification %d read: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}
