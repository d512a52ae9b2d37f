package submit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/admission"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/metadata"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/score"
)

// SystemSenderID is the sender of generated chat messages
const SystemSenderID = "system"

// Store is the persistence the coordinator writes to
type Store interface {
	CreateReportBundle(ctx context.Context, report *model.Report, room *model.ChatRoom, first *model.Message) error
}

// Enqueuer schedules background jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, kind, key string) (bool, error)
}

// Coordinator runs the submission flow
type Coordinator struct {
	store   Store
	scorer  *score.Scorer
	advisor *llm.Advisor
	queue   Enqueuer
	config  model.ScoringConfig
	logger  *slog.Logger
	hooks   []string
	now     func() time.Time
}

// NewCoordinator creates a coordinator. advisor and queue may be nil.
func NewCoordinator(store Store, advisor *llm.Advisor, queue Enqueuer, config model.ScoringConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		scorer:  score.NewScorer(),
		advisor: advisor,
		queue:   queue,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// OnCreate registers a job kind enqueued, keyed by report id, after every creation
func (c *Coordinator) OnCreate(kind string) {
	c.hooks = append(c.hooks, kind)
}

// Submit validates and admits a report and returns its id
func (c *Coordinator) Submit(ctx context.Context, input Input, authorID string) (string, error) {
	report, err := c.SubmitReport(ctx, input, authorID)
	if err != nil {
		return "", err
	}
	return report.ID, nil
}

// SubmitReport is Submit returning the stored report
func (c *Coordinator) SubmitReport(ctx context.Context, input Input, authorID string) (*model.Report, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, ErrInvalidAuthor
	}
	if err := input.Validate(c.config.MaxSubmitAccuracyMeters); err != nil {
		return nil, err
	}
	point, _ := input.Point()

	reportID := uuid.NewString()
	roomID := ChatRoomID(reportID)

	meta := metadata.Normalize(input.Capture)
	evaluatedAt := c.now()
	scored := c.scorer.ScoreAt(meta, point.Lat, point.Lng, evaluatedAt)
	verdict := c.advisor.Check(ctx, llm.AssessRequest{
		Image:       input.Image,
		Title:       input.Title,
		Category:    input.Category,
		Description: input.Description,
	})
	result := admission.Admit(scored, verdict)

	report := &model.Report{
		ID:          reportID,
		AuthorID:    authorID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Tags:        input.Tags,
		Location: model.Location{
			Latitude:          point.Lat,
			Longitude:         point.Lng,
			Geohash:           geo.Encode(point),
			GPSAccuracyMeters: *input.Verification.GPSAccuracy,
		},
		Media:      input.Media,
		Metadata:   meta,
		Trust:      result.Trust(evaluatedAt),
		Status:     model.StatusOpen,
		ChatRoomID: roomID,
		CreatedAt:  evaluatedAt.UTC(),
	}
	room := &model.ChatRoom{
		ID:        roomID,
		ReportID:  reportID,
		Title:     report.Title,
		CreatedAt: evaluatedAt.UTC(),
	}
	first := &model.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  SystemSenderID,
		Kind:      model.MessageSystem,
		Body:      fmt.Sprintf("Report created: %s. Trust score %d (%s).", report.Title, result.FinalScore, result.Decision),
		CreatedAt: evaluatedAt.UTC(),
	}

	if err := c.store.CreateReportBundle(ctx, report, room, first); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	c.logger.Info("report admitted",
		"report", reportID,
		"author", authorID,
		"score", result.FinalScore,
		"decision", result.Decision,
		"ai_deduction", result.Deduction)

	c.fireHooks(ctx, reportID)
	return report, nil
}

// fireHooks enqueues creation jobs; failures are logged, never returned,
// because the report is already committed
func (c *Coordinator) fireHooks(ctx context.Context, reportID string) {
	if c.queue == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, kind := range c.hooks {
		if _, err := c.queue.Enqueue(ctx, kind, reportID); err != nil {
			c.logger.Error("failed to enqueue creation hook", "report", reportID, "kind", kind, "error", err)
		}
	}
}

// ChatRoomID derives a report's chat room id
func ChatRoomID(reportID string) string {
	return "chat_" + reportID
}
