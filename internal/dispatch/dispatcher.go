package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/worker"
)

// JobKind is the queue kind that runs a dispatch for a report id
const JobKind = "dispatch"

// Store is the persistence the dispatcher needs
type Store interface {
	GetReport(ctx context.Context, id string) (*model.Report, error)
	VolunteerIDs(ctx context.Context, reportID string) ([]string, error)
	NotifiedUserIDs(ctx context.Context, reportID string) ([]string, error)
	CreateNotifications(ctx context.Context, records []model.NotificationRecord) (int64, error)
}

// Summary describes one dispatch run
type Summary struct {
	ReportID     string `json:"report_id"`
	Skipped      bool   `json:"skipped"`
	Candidates   int    `json:"candidates"` // Unique users returned by the range queries
	Recipients   int    `json:"recipients"` // Users left after exclusion and refine
	Chunks       int    `json:"chunks"`
	FailedChunks int    `json:"failed_chunks"`
	Notified     int64  `json:"notified"` // Notification records written
}

// Dispatcher runs geofenced fan-out
type Dispatcher struct {
	index   geo.SpatialIndex
	store   Store
	pusher  Pusher
	limiter *worker.Limiter
	config  model.DispatchConfig
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher; limiter may be nil
func NewDispatcher(index geo.SpatialIndex, store Store, pusher Pusher, limiter *worker.Limiter, config model.DispatchConfig, logger *slog.Logger) *Dispatcher {
	if config.RadiusMeters <= 0 {
		config.RadiusMeters = 2000
	}
	if config.ChunkSize <= 0 || config.ChunkSize > MaxTokensPerCall {
		config.ChunkSize = MaxTokensPerCall
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		index:   index,
		store:   store,
		pusher:  pusher,
		limiter: limiter,
		config:  config,
		logger:  logger,
	}
}

// ShouldDispatch reports whether a report fans out: it must be admitted,
// not FLAGGED, and either VERIFIED or tagged Urgent
func ShouldDispatch(report *model.Report) bool {
	if report == nil || !report.Trust.Admitted() || report.Trust.Decision == model.DecisionFlagged {
		return false
	}
	return report.Trust.Decision == model.DecisionVerified || report.IsUrgent()
}

// HandleJob is the queue handler for JobKind; key is the report id
func (d *Dispatcher) HandleJob(ctx context.Context, reportID string) error {
	report, err := d.store.GetReport(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	_, err = d.Dispatch(ctx, report)
	return err
}

// Dispatch notifies users within the configured radius of the report.
// Chunk failures are logged and counted, never returned; only failures
// before any delivery (candidate lookup) are errors.
func (d *Dispatcher) Dispatch(ctx context.Context, report *model.Report) (Summary, error) {
	summary := Summary{ReportID: report.ID}
	if !ShouldDispatch(report) {
		summary.Skipped = true
		return summary, nil
	}

	logger := d.logger.With("report", report.ID)
	center := geo.Point{Lat: report.Location.Latitude, Lng: report.Location.Longitude}
	if !center.Valid() {
		return summary, fmt.Errorf("report %s has an invalid location", report.ID)
	}

	excluded, err := d.excluded(ctx, report)
	if err != nil {
		return summary, err
	}

	candidates, err := d.candidates(ctx, center, excluded)
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(candidates)

	recipients := d.refine(center, candidates)
	summary.Recipients = len(recipients)
	if len(recipients) == 0 {
		logger.Debug("no recipients in range", "candidates", summary.Candidates)
		return summary, nil
	}

	title, body := notificationText(report)

	var notified atomic.Int64
	processor := worker.NewBatchProcessor(d.config.ChunkSize, d.config.Workers, func(ctx context.Context, index int, chunk []model.User) error {
		n, err := d.deliver(ctx, report, chunk, title, body)
		notified.Add(n)
		return err
	})

	results := processor.Process(ctx, recipients)
	summary.Chunks = len(results)
	for _, r := range results {
		if r.Error != nil {
			summary.FailedChunks++
			logger.Warn("notification chunk failed", "chunk", r.Index, "size", r.Size, "error", r.Error)
		}
	}
	summary.Notified = notified.Load()

	logger.Info("dispatch complete",
		"candidates", summary.Candidates,
		"recipients", summary.Recipients,
		"chunks", summary.Chunks,
		"failed_chunks", summary.FailedChunks,
		"notified", summary.Notified)

	return summary, nil
}

// excluded collects the author, volunteers and users already notified
func (d *Dispatcher) excluded(ctx context.Context, report *model.Report) (map[string]bool, error) {
	volunteers, err := d.store.VolunteerIDs(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("load volunteers: %w", err)
	}
	notified, err := d.store.NotifiedUserIDs(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("load notified users: %w", err)
	}

	excluded := make(map[string]bool, len(volunteers)+len(notified)+1)
	excluded[report.AuthorID] = true
	for _, id := range volunteers {
		excluded[id] = true
	}
	for _, id := range notified {
		excluded[id] = true
	}
	return excluded, nil
}

// candidates merges the range queries over every bound, deduplicated by id
func (d *Dispatcher) candidates(ctx context.Context, center geo.Point, excluded map[string]bool) ([]model.User, error) {
	seen := make(map[string]bool)
	var out []model.User

	for _, bound := range geo.QueryBounds(center, d.config.RadiusMeters) {
		users, err := d.index.UsersInBound(ctx, bound)
		if err != nil {
			return nil, fmt.Errorf("query spatial index: %w", err)
		}
		for _, u := range users {
			if seen[u.ID] || excluded[u.ID] {
				continue
			}
			seen[u.ID] = true
			out = append(out, u)
		}
	}
	return out, nil
}

// refine keeps users with a precise location within the radius and a push token
func (d *Dispatcher) refine(center geo.Point, candidates []model.User) []model.User {
	var out []model.User
	for _, u := range candidates {
		if u.PushToken == "" {
			continue
		}
		p, ok := geo.UserPoint(u)
		if !ok || !p.Valid() {
			continue
		}
		if geo.Haversine(center, p) > d.config.RadiusMeters {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// deliver sends one push call for the chunk, then writes its records in
// one statement whatever the push outcome
func (d *Dispatcher) deliver(ctx context.Context, report *model.Report, chunk []model.User, title, body string) (int64, error) {
	msg := PushMessage{
		Tokens: make([]string, len(chunk)),
		Title:  title,
		Body:   body,
		Data:   map[string]string{"report_id": report.ID},
	}
	for i, u := range chunk {
		msg.Tokens[i] = u.PushToken
	}

	var pushErr error
	if d.limiter != nil {
		pushErr = d.limiter.Wait(ctx, d.pusher.Name())
	}
	if pushErr == nil {
		var result PushResult
		result, pushErr = d.pusher.Send(ctx, msg)
		if pushErr == nil && result.FailureCount > 0 {
			d.logger.Debug("push partially delivered", "report", report.ID, "failed_tokens", result.FailureCount)
		}
	}

	records := make([]model.NotificationRecord, len(chunk))
	for i, u := range chunk {
		records[i] = model.NotificationRecord{
			UserID:   u.ID,
			ReportID: report.ID,
			Title:    title,
			Body:     body,
		}
	}
	n, persistErr := d.store.CreateNotifications(ctx, records)

	if pushErr != nil {
		pushErr = fmt.Errorf("push: %w", pushErr)
	}
	if persistErr != nil {
		persistErr = fmt.Errorf("persist notifications: %w", persistErr)
	}
	return n, errors.Join(pushErr, persistErr)
}

func notificationText(report *model.Report) (string, string) {
	title := "New verified issue nearby"
	if report.IsUrgent() {
		title = "Urgent issue nearby"
	}
	body := report.Title
	if report.Category != "" {
		body = report.Category + ": " + report.Title
	}
	return title, body
}
