package model

import "time"

// JobState is the lifecycle state of a background job
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job is the persisted record of a background side effect
type Job struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	Kind       string     `json:"kind" gorm:"size:64;uniqueIndex:idx_job_kind_key,priority:1"`
	Key        string     `json:"key" gorm:"column:job_key;size:128;uniqueIndex:idx_job_kind_key,priority:2"` // Idempotency key within a kind
	State      JobState   `json:"state" gorm:"size:16;index"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
