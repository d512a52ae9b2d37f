package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// ErrQueueClosed is returned by Enqueue after Close
var ErrQueueClosed = errors.New("job queue closed")

// ErrUnknownKind is recorded for jobs with no registered handler
var ErrUnknownKind = errors.New("no handler for job kind")

// JobStore persists job state
type JobStore interface {
	// EnqueueJob records a pending job for (kind, key). It returns false
	// when a job for that pair is already pending, running or succeeded.
	// A failed job is reset to pending and returned with true.
	EnqueueJob(ctx context.Context, kind, key string) (*model.Job, bool, error)

	// StartJob marks a job running and counts the attempt
	StartJob(ctx context.Context, id string) error

	// FinishJob marks a job succeeded, or failed with runErr
	FinishJob(ctx context.Context, id string, runErr error) error

	// UnfinishedJobs lists jobs left pending or running
	UnfinishedJobs(ctx context.Context) ([]model.Job, error)

	// RetryJob resets a failed job to pending
	RetryJob(ctx context.Context, id string) (*model.Job, error)
}

// Handler runs the side effect for one job key
type Handler func(ctx context.Context, key string) error

// Queue runs side effects in the background with persisted state.
// Scheduling never blocks: up to backlog jobs wait in memory, the rest
// stay pending in the store and are loaded again once the backlog drains.
type Queue struct {
	store    JobStore
	logger   *slog.Logger
	workers  int
	backlog  int
	handlers map[string]Handler

	mu       sync.Mutex
	ready    *sync.Cond
	pending  []model.Job
	tracked  map[string]bool // ids waiting in pending or running
	overflow bool            // pending jobs were left in the store
	closed   bool
	started  bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue creates a queue; call Handle for each kind, then Start.
// backlog bounds the jobs held in memory and is at least workers.
func NewQueue(store JobStore, workers, backlog int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if backlog < workers {
		backlog = workers
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:    store,
		logger:   logger,
		workers:  workers,
		backlog:  backlog,
		handlers: make(map[string]Handler),
		tracked:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Handle registers the handler for a job kind
func (q *Queue) Handle(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// Start launches the workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Enqueue persists and schedules a job without waiting for a worker. It
// returns false when an identical job was already done or is in flight.
func (q *Queue) Enqueue(ctx context.Context, kind, key string) (bool, error) {
	job, created, err := q.store.EnqueueJob(ctx, kind, key)
	if err != nil {
		return false, fmt.Errorf("enqueue %s/%s: %w", kind, key, err)
	}
	if !created {
		q.logger.Debug("job already recorded", "kind", kind, "key", key, "state", job.State)
		return false, nil
	}

	if err := q.schedule(*job); err != nil {
		return false, err
	}
	return true, nil
}

// Resume schedules jobs left unfinished by a previous process
func (q *Queue) Resume(ctx context.Context) (int, error) {
	jobs, err := q.store.UnfinishedJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinished jobs: %w", err)
	}

	for _, job := range jobs {
		if err := q.schedule(job); err != nil {
			return 0, err
		}
	}
	if len(jobs) > 0 {
		q.logger.Info("resumed unfinished jobs", "count", len(jobs))
	}
	return len(jobs), nil
}

// Retry re-runs a failed job
func (q *Queue) Retry(ctx context.Context, id string) error {
	job, err := q.store.RetryJob(ctx, id)
	if err != nil {
		return fmt.Errorf("retry job %s: %w", id, err)
	}
	return q.schedule(*job)
}

// schedule hands a persisted job to the workers. A full backlog leaves
// the job pending in the store.
func (q *Queue) schedule(job model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.push(job)
	return nil
}

// push must be called with mu held
func (q *Queue) push(job model.Job) {
	if q.tracked[job.ID] {
		return
	}
	if len(q.pending) >= q.backlog {
		if !q.overflow {
			q.logger.Warn("job backlog full, leaving jobs pending in store", "backlog", q.backlog)
		}
		q.overflow = true
		return
	}
	q.tracked[job.ID] = true
	q.pending = append(q.pending, job)
	q.ready.Signal()
}

// next blocks until a job is available. It returns false once the queue
// is closed and the backlog is drained.
func (q *Queue) next() (model.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			return job, true
		}
		if q.closed {
			return model.Job{}, false
		}
		if q.overflow {
			q.overflow = false
			q.mu.Unlock()
			jobs, err := q.store.UnfinishedJobs(q.ctx)
			q.mu.Lock()
			if err != nil {
				q.logger.Error("failed to reload pending jobs", "error", err)
			}
			for _, job := range jobs {
				if job.State == model.JobPending && !q.closed {
					q.push(job)
				}
			}
			continue
		}
		q.ready.Wait()
	}
}

func (q *Queue) done(id string) {
	q.mu.Lock()
	delete(q.tracked, id)
	q.mu.Unlock()
}

// Close stops accepting jobs and waits for the backlog to finish. Jobs
// left in the store stay pending for Resume.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	started := q.started
	q.ready.Broadcast()
	q.mu.Unlock()

	if started {
		q.wg.Wait()
	}
	q.cancel()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		job, ok := q.next()
		if !ok {
			return
		}
		q.run(job)
		q.done(job.ID)
	}
}

func (q *Queue) run(job model.Job) {
	logger := q.logger.With("job", job.ID, "kind", job.Kind, "key", job.Key)

	q.mu.Lock()
	handler := q.handlers[job.Kind]
	q.mu.Unlock()

	if err := q.store.StartJob(q.ctx, job.ID); err != nil {
		logger.Error("failed to mark job running", "error", err)
		return
	}

	var runErr error
	if handler == nil {
		runErr = ErrUnknownKind
	} else {
		runErr = safeRun(q.ctx, handler, job.Key)
	}

	if err := q.store.FinishJob(q.ctx, job.ID, runErr); err != nil {
		logger.Error("failed to record job result", "error", err)
	}

	if runErr != nil {
		logger.Warn("job failed", "error", runErr)
		return
	}
	logger.Debug("job succeeded")
}

func safeRun(ctx context.Context, h Handler, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(ctx, key)
}
