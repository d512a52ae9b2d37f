package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/reports"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/submit"
)

func (s *Server) submitReport(c echo.Context) error {
	viewer := ViewerID(c)
	if viewer == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var input submit.Input
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	report, err := s.deps.Submitter.SubmitReport(c.Request().Context(), input, viewer)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"id":     report.ID,
		"report": report,
	})
}

func (s *Server) feed(c echo.Context) error {
	var filter store.ReportFilter
	var status string
	err := echo.QueryParamsBinder(c).
		String("category", &filter.Category).
		String("status", &status).
		Int("limit", &filter.Limit).
		Int("offset", &filter.Offset).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	filter.Status = model.ReportStatus(strings.ToUpper(status))

	list, err := s.deps.Reports.Feed(c.Request().Context(), ViewerID(c), filter)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) mapPins(c echo.Context) error {
	var center geo.Point
	var radius float64
	var limit int
	err := echo.QueryParamsBinder(c).
		MustFloat64("lat", &center.Lat).
		MustFloat64("lng", &center.Lng).
		Float64("radius", &radius).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng are required")
	}

	pins, err := s.deps.Reports.MapPins(c.Request().Context(), ViewerID(c), center, radius, limit)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, pins)
}

func (s *Server) getReport(c echo.Context) error {
	report, err := s.deps.Reports.Get(c.Request().Context(), ViewerID(c), c.Param("id"))
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

type chatResponse struct {
	Room     *model.ChatRoom `json:"room"`
	Messages []model.Message `json:"messages"`
}

func (s *Server) chatRoom(c echo.Context) error {
	room, err := s.deps.Reports.ChatRoom(c.Request().Context(), ViewerID(c), c.Param("id"))
	if err != nil {
		return s.httpError(c, err)
	}
	messages := room.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	return c.JSON(http.StatusOK, chatResponse{Room: room, Messages: messages})
}

type voteRequest struct {
	Direction *int `json:"direction"`
}

func (s *Server) vote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil || req.Direction == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "direction is required")
	}

	tally, err := s.deps.Reports.Vote(c.Request().Context(), ViewerID(c), c.Param("id"), *req.Direction)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, tally)
}

func (s *Server) volunteer(c echo.Context) error {
	if err := s.deps.Reports.Volunteer(c.Request().Context(), ViewerID(c), c.Param("id")); err != nil {
		return s.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) verify(c echo.Context) error {
	var in reports.VerifyInput
	if err := c.Bind(&in); err != nil || in.ReportID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reportId is required")
	}

	res, err := s.deps.Reports.Verify(c.Request().Context(), ViewerID(c), in)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) notifications(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	list, err := s.deps.Reports.Notifications(c.Request().Context(), ViewerID(c), limit)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) markRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := s.deps.Reports.MarkRead(c.Request().Context(), ViewerID(c), uint(id)); err != nil {
		return s.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type userRequest struct {
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	PushToken string   `json:"push_token"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) getMe(c echo.Context) error {
	viewer := ViewerID(c)
	if viewer == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	user, err := s.deps.Users.GetUser(c.Request().Context(), viewer)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) saveMe(c echo.Context) error {
	viewer := ViewerID(c)
	if viewer == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	role := model.UserRole(strings.ToLower(req.Role))
	switch role {
	case "":
		role = model.RoleCitizen
	case model.RoleCitizen, model.RoleVolunteer, model.RoleNGO:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "latitude and longitude go together")
	}
	if req.Latitude != nil && !(geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location")
	}

	user := &model.User{
		ID:        viewer,
		Name:      req.Name,
		Role:      role,
		PushToken: req.PushToken,
		Location:  model.UserLocation{Latitude: req.Latitude, Longitude: req.Longitude},
	}
	if err := s.deps.Users.SaveUser(c.Request().Context(), user); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) updateLocation(c echo.Context) error {
	viewer := ViewerID(c)
	if viewer == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req locationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "latitude and longitude are required")
	}
	p := geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}
	if !p.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location")
	}

	if err := s.deps.Users.UpdateUserLocation(c.Request().Context(), viewer, p); err != nil {
		return s.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) geocode(c echo.Context) error {
	var p geo.Point
	err := echo.QueryParamsBinder(c).
		MustFloat64("lat", &p.Lat).
		MustFloat64("lng", &p.Lng).
		BindError()
	if err != nil || !p.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "valid lat and lng are required")
	}

	addr, err := s.deps.Geocoder.Reverse(c.Request().Context(), p)
	if err != nil {
		s.logger.Warn("reverse geocoding failed", "lat", p.Lat, "lng", p.Lng, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "geocoding unavailable")
	}
	return c.JSON(http.StatusOK, addr)
}

func (s *Server) listJobs(c echo.Context) error {
	var state string
	var limit int
	err := echo.QueryParamsBinder(c).
		String("state", &state).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}

	jobs, err := s.deps.Jobs.ListJobs(c.Request().Context(), model.JobState(strings.ToLower(state)), limit)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) getJob(c echo.Context) error {
	job, err := s.deps.Jobs.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) retryJob(c echo.Context) error {
	if err := s.deps.Retrier.Retry(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}
