package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/capture"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/geo"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/reports"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/store"
	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/submit"
)

const testSecret = "test-secret"

type recordingQueue struct {
	mu      sync.Mutex
	jobs    []string
	retried []string
}

func (q *recordingQueue) Enqueue(ctx context.Context, kind, key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, kind+":"+key)
	return true, nil
}

func (q *recordingQueue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, id)
	return nil
}

type fixedGeocoder struct{}

func (fixedGeocoder) Reverse(ctx context.Context, p geo.Point) (*capture.Address, error) {
	return &capture.Address{DisplayName: "MG Road", Point: p}, nil
}

type testEnv struct {
	server *Server
	store  *store.Store
	queue  *recordingQueue
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	st, err := store.Open(model.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	q := &recordingQueue{}
	coordinator := submit.NewCoordinator(st, nil, q, model.ScoringConfig{}, nil)
	coordinator.OnCreate("dispatch")

	srv := NewServer(Deps{
		Submitter: coordinator,
		Reports:   reports.NewService(st, nil, q, nil),
		Users:     st,
		Jobs:      st,
		Retrier:   q,
		Geocoder:  fixedGeocoder{},
		JWTSecret: secret,
	})
	return &testEnv{server: srv, store: st, queue: q}
}

func (env *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := NewToken(testSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	return tok
}

func submitBody(accuracy float64, media string) string {
	now := time.Now().UnixMilli()
	return fmt.Sprintf(`{
		"title": "Pothole on MG Road",
		"description": "Deep pothole near the metro pillar",
		"category": "Road",
		"tags": ["Urgent"],
		"media": [%s],
		"location": {"latitude": 12.9716, "longitude": 77.5946},
		"verificationInput": {"gpsAccuracy": %g},
		"capture": {"gps": {"lat": 12.9716, "lng": 77.5946, "accuracy": 8}, "capturedAtUnix": %d}
	}`, media, accuracy, now)
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t, testSecret)
	alice := token(t, "alice", "")

	rec := env.do(t, http.MethodPost, "/api/v1/reports", alice, submitBody(8, `"gs://bucket/a.jpg"`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string       `json:"id"`
		Report model.Report `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || resp.Report.AuthorID != "alice" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Report.Trust.Decision != model.DecisionVerified {
		t.Errorf("expected VERIFIED, got %s (%d)", resp.Report.Trust.Decision, resp.Report.Trust.Score)
	}
	if len(env.queue.jobs) != 1 || env.queue.jobs[0] != "dispatch:"+resp.ID {
		t.Errorf("expected a dispatch job, got %v", env.queue.jobs)
	}
}

func TestSubmit_Errors(t *testing.T) {
	env := newTestEnv(t, testSecret)
	alice := token(t, "alice", "")

	tests := []struct {
		name    string
		token   string
		body    string
		status  int
		message string
	}{
		{"anonymous", "", submitBody(8, `"a.jpg"`), http.StatusUnauthorized, ""},
		{"bad token", "not-a-jwt", submitBody(8, `"a.jpg"`), http.StatusUnauthorized, ""},
		{"empty media", alice, submitBody(8, ``), http.StatusBadRequest, "Invalid media"},
		{"poor gps", alice, submitBody(100, `"a.jpg"`), http.StatusBadRequest, "Poor GPS Lock"},
		{"malformed", alice, `{"title":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/reports", tt.token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.message != "" && !strings.Contains(rec.Body.String(), tt.message) {
				t.Errorf("expected %q in %s", tt.message, rec.Body.String())
			}
		})
	}

	list, _ := env.store.ListReports(context.Background(), store.ReportFilter{})
	if len(list) != 0 {
		t.Errorf("expected no writes, got %d reports", len(list))
	}
}

func seedReport(t *testing.T, st *store.Store, id, author string, decision model.Decision) {
	t.Helper()
	p := geo.Point{Lat: 12.9716, Lng: 77.5946}
	err := st.CreateReportBundle(context.Background(), &model.Report{
		ID:         id,
		AuthorID:   author,
		Title:      "Issue " + id,
		Category:   "Road",
		Location:   model.Location{Latitude: p.Lat, Longitude: p.Lng, Geohash: geo.Encode(p)},
		Media:      []string{"m.jpg"},
		Trust:      model.Trust{Score: 30, Decision: decision},
		ChatRoomID: "chat_" + id,
	}, &model.ChatRoom{ID: "chat_" + id, ReportID: id}, &model.Message{ID: "m_" + id, RoomID: "chat_" + id, Kind: model.MessageSystem, Body: "created"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestFlaggedReportVisibility(t *testing.T) {
	env := newTestEnv(t, testSecret)
	seedReport(t, env.store, "shadow", "alice", model.DecisionFlagged)

	if rec := env.do(t, http.MethodGet, "/api/v1/reports/shadow", token(t, "alice", ""), ""); rec.Code != http.StatusOK {
		t.Errorf("author: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/reports/shadow", token(t, "bob", ""), ""); rec.Code != http.StatusNotFound {
		t.Errorf("bob: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/reports/shadow", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("anonymous: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/reports/shadow/chat", token(t, "bob", ""), ""); rec.Code != http.StatusNotFound {
		t.Errorf("chat for bob: expected 404, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/reports", "", "")
	var feed []model.Report
	_ = json.Unmarshal(rec.Body.Bytes(), &feed)
	if rec.Code != http.StatusOK || len(feed) != 0 {
		t.Errorf("anonymous feed: expected empty, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/reports/map?lat=12.9716&lng=77.5946&radius=500", token(t, "alice", ""), "")
	var pins []reports.Pin
	_ = json.Unmarshal(rec.Body.Bytes(), &pins)
	if rec.Code != http.StatusOK || len(pins) != 1 {
		t.Errorf("author map: expected 1 pin, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMapPins_RequiresCenter(t *testing.T) {
	env := newTestEnv(t, testSecret)
	if rec := env.do(t, http.MethodGet, "/api/v1/reports/map?lat=12.9", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/reports/map?lat=120&lng=0", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid center, got %d", rec.Code)
	}
}

func TestChatRoom(t *testing.T) {
	env := newTestEnv(t, testSecret)
	seedReport(t, env.store, "r1", "alice", model.DecisionPending)

	rec := env.do(t, http.MethodGet, "/api/v1/reports/r1/chat", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp chatResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Room == nil || resp.Room.ID != "chat_r1" || len(resp.Messages) != 1 {
		t.Errorf("unexpected chat %s", rec.Body.String())
	}
}

func TestVote(t *testing.T) {
	env := newTestEnv(t, testSecret)
	seedReport(t, env.store, "r1", "alice", model.DecisionPending)
	bob := token(t, "bob", "")

	rec := env.do(t, http.MethodPost, "/api/v1/reports/r1/votes", bob, `{"direction":1}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"net_votes":1`) {
		t.Fatalf("expected net 1, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/reports/r1/votes", bob, `{"direction":-1}`)
	if !strings.Contains(rec.Body.String(), `"net_votes":-1`) {
		t.Errorf("expected net -1 after switching, got %s", rec.Body.String())
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/reports/r1/votes", bob, `{"direction":3}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid direction, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/reports/r1/votes", bob, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a direction, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/reports/r1/votes", "", `{"direction":1}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous vote, got %d", rec.Code)
	}
}

func TestVolunteer(t *testing.T) {
	env := newTestEnv(t, testSecret)
	seedReport(t, env.store, "r1", "alice", model.DecisionVerified)

	if rec := env.do(t, http.MethodPost, "/api/v1/reports/r1/volunteers", token(t, "vol", ""), ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	ids, _ := env.store.VolunteerIDs(context.Background(), "r1")
	if len(ids) != 1 || ids[0] != "vol" {
		t.Errorf("unexpected volunteers %v", ids)
	}
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t, testSecret)
	seedReport(t, env.store, "r1", "alice", model.DecisionPending)
	seedReport(t, env.store, "shadow", "alice", model.DecisionFlagged)
	alice := token(t, "alice", "")
	mallory := token(t, "mallory", "")

	rec := env.do(t, http.MethodPost, "/api/v1/upload/verify", alice, `{"reportId":"r1","reportedLat":12.9716,"reportedLng":77.5946}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var res reports.VerifyResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.TrustScore != 30 || res.IsVerified {
		t.Errorf("expected recorded trust, got %+v", res)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/upload/verify", "", `{"reportId":"r1","reportedLat":1,"reportedLng":1}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous verify, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/upload/verify", mallory, `{"reportId":"shadow","reportedLat":1,"reportedLng":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for flagged report of another author, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/upload/verify", alice, `{"reportId":"missing","reportedLat":1,"reportedLng":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/upload/verify", alice, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t, testSecret)
	ctx := context.Background()
	seedReport(t, env.store, "ok", "alice", model.DecisionVerified)
	seedReport(t, env.store, "shadow", "alice", model.DecisionFlagged)
	_, _ = env.store.CreateNotifications(ctx, []model.NotificationRecord{
		{UserID: "bob", ReportID: "ok", Title: "New verified issue nearby"},
		{UserID: "bob", ReportID: "shadow", Title: "Urgent issue nearby"},
	})
	bob := token(t, "bob", "")

	if rec := env.do(t, http.MethodGet, "/api/v1/notifications", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/notifications", bob, "")
	var inbox []model.NotificationRecord
	_ = json.Unmarshal(rec.Body.Bytes(), &inbox)
	if rec.Code != http.StatusOK || len(inbox) != 1 || inbox[0].ReportID != "ok" {
		t.Fatalf("expected only the visible notification, got %d %s", rec.Code, rec.Body.String())
	}

	path := fmt.Sprintf("/api/v1/notifications/%d/read", inbox[0].ID)
	if rec := env.do(t, http.MethodPost, path, bob, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/notifications/abc/read", bob, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, testSecret)
	bob := token(t, "bob", "")

	rec := env.do(t, http.MethodPut, "/api/v1/users/me", bob, `{"name":"Bob","role":"volunteer","push_token":"tok-b","latitude":12.97,"longitude":77.59}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	user, err := env.store.GetUser(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Role != model.RoleVolunteer || user.Location.Geohash == "" {
		t.Errorf("unexpected user %+v", user)
	}

	if rec := env.do(t, http.MethodPut, "/api/v1/users/me/location", bob, `{"latitude":13.0,"longitude":77.6}`); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/v1/users/me/location", bob, `{"latitude":99,"longitude":77.6}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	for _, body := range []string{`{}`, `{"latitude":13.0}`, `{"longitude":77.6}`} {
		if rec := env.do(t, http.MethodPut, "/api/v1/users/me/location", bob, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
	moved, err := env.store.GetUser(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if moved.Location.Latitude == nil || *moved.Location.Latitude != 13.0 {
		t.Errorf("a rejected update must keep the last location, got %+v", moved.Location)
	}
	if rec := env.do(t, http.MethodPut, "/api/v1/users/me", bob, `{"role":"mayor"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown role, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/users/me", bob, ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/users/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGeocode(t *testing.T) {
	env := newTestEnv(t, testSecret)
	rec := env.do(t, http.MethodGet, "/api/v1/geocode?lat=12.97&lng=77.59", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "MG Road") {
		t.Errorf("unexpected geocode response %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/geocode?lat=x", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobs_RequireAdmin(t *testing.T) {
	env := newTestEnv(t, testSecret)
	job, _, err := env.store.EnqueueJob(context.Background(), "dispatch", "r1")
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/jobs", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/jobs", token(t, "bob", ""), ""); rec.Code != http.StatusForbidden {
		t.Errorf("citizen: expected 403, got %d", rec.Code)
	}

	admin := token(t, "ops", RoleAdmin)
	rec := env.do(t, http.MethodGet, "/api/v1/jobs?state=pending", admin, "")
	var jobs []model.Job
	_ = json.Unmarshal(rec.Body.Bytes(), &jobs)
	if rec.Code != http.StatusOK || len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Errorf("unexpected jobs %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, admin, ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/retry", admin, ""); rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if len(env.queue.retried) != 1 {
		t.Errorf("expected a retry, got %v", env.queue.retried)
	}
}

func TestDevHeaders(t *testing.T) {
	env := newTestEnv(t, "")
	seedReport(t, env.store, "shadow", "alice", model.DecisionFlagged)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/shadow", nil)
	req.Header.Set(DevUserHeader, "alice")
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected the dev header to identify the author, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, testSecret)
	if rec := env.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
