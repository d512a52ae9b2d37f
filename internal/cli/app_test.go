package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/dispatch"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

func TestApp_DispatchJobLifecycle(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.Cache.Enabled = false

	a, err := newApp(cfg, slog.Default())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	ctx := context.Background()
	if err := a.resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	// the report does not exist yet, so the first run fails
	if _, err := a.queue.Enqueue(ctx, dispatch.JobKind, "r1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var failed *model.Job
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		jobs, _ := a.store.ListJobs(ctx, model.JobFailed, 10)
		if len(jobs) == 1 {
			failed = &jobs[0]
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if failed == nil {
		t.Fatal("expected the job to fail")
	}

	err = a.store.CreateReportBundle(ctx, &model.Report{
		ID:       "r1",
		AuthorID: "alice",
		Title:    "Pothole",
		Media:    []string{"a.jpg"},
		Trust:    model.Trust{Score: 70, Decision: model.DecisionPending},
	}, &model.ChatRoom{ID: "chat_r1", ReportID: "r1"}, &model.Message{ID: "m1", RoomID: "chat_r1", Kind: model.MessageSystem})
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}

	if err := a.queue.Retry(ctx, failed.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	a.queue.Close()

	job, err := a.store.GetJob(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.State != model.JobSucceeded || job.Attempts != 2 {
		t.Errorf("expected succeeded after 2 attempts, got %s/%d", job.State, job.Attempts)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
