package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/worker"
)

// ErrJobNotFailed is returned when retrying a job that has not failed
var ErrJobNotFailed = errors.New("job is not in failed state")

// EnqueueJob implements worker.JobStore
func (s *Store) EnqueueJob(ctx context.Context, kind, key string) (*model.Job, bool, error) {
	var job model.Job
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := model.Job{ID: uuid.NewString(), Kind: kind, Key: key, State: model.JobPending}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "job_key"}},
			DoNothing: true,
		}).Create(&candidate)
		if res.Error != nil {
			return fmt.Errorf("insert job: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			job, created = candidate, true
			return nil
		}

		if err := tx.Where("kind = ? AND job_key = ?", kind, key).Take(&job).Error; err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if job.State != model.JobFailed {
			return nil
		}

		// a failed job may run again when its trigger fires again
		res = tx.Model(&model.Job{}).
			Where("id = ? AND state = ?", job.ID, model.JobFailed).
			Updates(map[string]any{"state": model.JobPending, "finished_at": nil})
		if res.Error != nil {
			return fmt.Errorf("reset job: %w", res.Error)
		}
		job.State = model.JobPending
		job.FinishedAt = nil
		created = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &job, created, nil
}

// StartJob implements worker.JobStore
func (s *Store) StartJob(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":    model.JobRunning,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("start job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// FinishJob implements worker.JobStore
func (s *Store) FinishJob(ctx context.Context, id string, runErr error) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"state":       model.JobSucceeded,
		"last_error":  "",
		"finished_at": now,
	}
	if runErr != nil {
		updates["state"] = model.JobFailed
		updates["last_error"] = runErr.Error()
	}

	if err := s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	return nil
}

// UnfinishedJobs implements worker.JobStore
func (s *Store) UnfinishedJobs(ctx context.Context) ([]model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("state IN ?", []model.JobState{model.JobPending, model.JobRunning}).
		Order("created_at").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list unfinished jobs: %w", err)
	}
	return jobs, nil
}

// RetryJob implements worker.JobStore
func (s *Store) RetryJob(ctx context.Context, id string) (*model.Job, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND state = ?", id, model.JobFailed).
		Updates(map[string]any{"state": model.JobPending, "finished_at": nil})
	if res.Error != nil {
		return nil, fmt.Errorf("retry job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("job %s: %w", id, ErrJobNotFailed)
	}
	return s.GetJob(ctx, id)
}

// GetJob loads a job by id
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "job "+id)
	}
	return &job, nil
}

// ListJobs returns jobs newest first, optionally filtered by state
func (s *Store) ListJobs(ctx context.Context, state model.JobState, limit int) ([]model.Job, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Model(&model.Job{})
	if state != "" {
		q = q.Where("state = ?", state)
	}

	var jobs []model.Job
	if err := q.Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

var _ worker.JobStore = (*Store)(nil)
