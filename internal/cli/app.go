package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/cache"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/capture"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/dispatch"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/llm"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/reports"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/submit"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/worker"
)

// app holds the wired service graph shared by serve and jobs
type app struct {
	config      *model.Config
	logger      *slog.Logger
	store       *store.Store
	advisor     *llm.Advisor
	queue       *worker.Queue
	dispatcher  *dispatch.Dispatcher
	coordinator *submit.Coordinator
	reports     *reports.Service
	geocoder    *capture.NominatimGeocoder
}

// newApp opens the store and wires every service. The queue is started
// but unfinished jobs are not resumed; callers decide.
func newApp(cfg *model.Config, logger *slog.Logger) (*app, error) {
	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	advisor, err := llm.NewAdvisor(llm.ConfigFromModel(cfg.Advisor, cfg.HTTP), cache.New(cfg.Cache), logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create advisor: %w", err)
	}

	pusher, err := dispatch.NewPusher(cfg.Push, cfg.HTTP, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create pusher: %w", err)
	}

	limiter := worker.NewLimiter(cfg.Dispatch.RequestsPerSecond, cfg.Dispatch.BurstSize)
	dispatcher := dispatch.NewDispatcher(st, st, pusher, limiter, cfg.Dispatch, logger)

	queue := worker.NewQueue(st, cfg.Queue.Workers, cfg.Queue.Buffer, logger)
	queue.Handle(dispatch.JobKind, dispatcher.HandleJob)
	queue.Start()

	coordinator := submit.NewCoordinator(st, advisor, queue, cfg.Scoring, logger)
	coordinator.OnCreate(dispatch.JobKind)

	logger.Debug("services wired",
		"database", cfg.Database.Driver,
		"advisor", advisor.ProviderName(),
		"pusher", pusher.Name(),
		"radius_meters", cfg.Dispatch.RadiusMeters)

	return &app{
		config:      cfg,
		logger:      logger,
		store:       st,
		advisor:     advisor,
		queue:       queue,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		reports:     reports.NewService(st, advisor, queue, logger),
		geocoder:    capture.NewNominatimGeocoder(cfg.Geocode, cfg.HTTP, cache.NewMemoryCache(cfg.Cache.MemoryTTL)),
	}, nil
}

// resume re-schedules jobs a previous process left unfinished
func (a *app) resume(ctx context.Context) error {
	_, err := a.queue.Resume(ctx)
	return err
}

// Close drains the queue, then closes the store
func (a *app) Close() error {
	a.queue.Close()
	return a.store.Close()
}
