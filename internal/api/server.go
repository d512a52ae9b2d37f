package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/capture"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/reports"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/submit"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/worker"
)

// Submitter creates reports
type Submitter interface {
	SubmitReport(ctx context.Context, input submit.Input, authorID string) (*model.Report, error)
}

// Reports is the visibility-aware read and interaction service
type Reports interface {
	Feed(ctx context.Context, viewerID string, filter store.ReportFilter) ([]model.Report, error)
	MapPins(ctx context.Context, viewerID string, center geo.Point, radiusMeters float64, limit int) ([]reports.Pin, error)
	Get(ctx context.Context, viewerID, id string) (*model.Report, error)
	ChatRoom(ctx context.Context, viewerID, reportID string) (*model.ChatRoom, error)
	Notifications(ctx context.Context, viewerID string, limit int) ([]model.NotificationRecord, error)
	MarkRead(ctx context.Context, viewerID string, id uint) error
	Vote(ctx context.Context, viewerID, reportID string, direction int) (store.VoteTally, error)
	Volunteer(ctx context.Context, viewerID, reportID string) error
	Verify(ctx context.Context, viewerID string, in reports.VerifyInput) (reports.VerifyResult, error)
}

// Users stores notification recipients
type Users interface {
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUserLocation(ctx context.Context, userID string, p geo.Point) error
}

// Jobs lists persisted background jobs
type Jobs interface {
	ListJobs(ctx context.Context, state model.JobState, limit int) ([]model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// Retrier re-runs failed jobs
type Retrier interface {
	Retry(ctx context.Context, id string) error
}

// Deps are the collaborators served by the API. Geocoder, Jobs and
// Retrier are optional; their routes are only registered when set.
type Deps struct {
	Submitter Submitter
	Reports   Reports
	Users     Users
	Jobs      Jobs
	Retrier   Retrier
	Geocoder  capture.Geocoder
	JWTSecret string
	Logger    *slog.Logger
}

// maxBodySize bounds request bodies, which may carry a base64 image
const maxBodySize = "12M"

// Server wires the handlers onto an echo instance
type Server struct {
	deps   Deps
	logger *slog.Logger
	echo   *echo.Echo
}

// NewServer builds the echo instance with middleware and routes
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{deps: deps, logger: logger, echo: e}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("viewer", ViewerID(c)),
			)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(Viewer(deps.JWTSecret))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.Register(e.Group("/api/v1"))
	return s
}

// Echo returns the underlying echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info("api listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Register registers the API routes
func (s *Server) Register(g *echo.Group) {
	g.POST("/reports", s.submitReport)
	g.GET("/reports", s.feed)
	g.GET("/reports/map", s.mapPins)
	g.GET("/reports/:id", s.getReport)
	g.GET("/reports/:id/chat", s.chatRoom)
	g.POST("/reports/:id/votes", s.vote)
	g.POST("/reports/:id/volunteers", s.volunteer)
	g.POST("/upload/verify", s.verify)

	g.GET("/notifications", s.notifications)
	g.POST("/notifications/:id/read", s.markRead)

	g.GET("/users/me", s.getMe)
	g.PUT("/users/me", s.saveMe)
	g.PUT("/users/me/location", s.updateLocation)

	if s.deps.Geocoder != nil {
		g.GET("/geocode", s.geocode)
	}

	if s.deps.Jobs != nil {
		jobs := g.Group("/jobs", RequireRole(RoleAdmin))
		jobs.GET("", s.listJobs)
		jobs.GET("/:id", s.getJob)
		if s.deps.Retrier != nil {
			jobs.POST("/:id/retry", s.retryJob)
		}
	}
}

var validationErrors = []error{
	submit.ErrInvalidTitle,
	submit.ErrInvalidDescription,
	submit.ErrInvalidCategory,
	submit.ErrInvalidMedia,
	submit.ErrPoorGPSLock,
	submit.ErrInvalidLocation,
	store.ErrInvalidVote,
	reports.ErrInvalidLocation,
}

// httpError maps service errors to HTTP errors
func (s *Server) httpError(c echo.Context, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, reports.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, reports.ErrUnauthenticated), errors.Is(err, submit.ErrInvalidAuthor):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, reports.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrVoteContention), errors.Is(err, store.ErrJobNotFailed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, worker.ErrQueueClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "shutting down")
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return echo.NewHTTPError(http.StatusBadRequest, v.Error())
		}
	}

	s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
