package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/command"
	"github.com/nerrad567/gray-logic-grow/internal/dispatch"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-grow/internal/planner"
)

type fakePending []action.Entry

func (f fakePending) Pending() []action.Entry { return f }

type fakeReader struct {
	records []actionlog.Record
	last    actionlog.Filter
	err     error
}

func (f *fakeReader) List(_ context.Context, filter actionlog.Filter) ([]actionlog.Record, error) {
	f.last = filter
	return f.records, f.err
}

type fakeStats dispatch.Stats

func (f fakeStats) Stats() dispatch.Stats { return dispatch.Stats(f) }

type fakePlan struct{}

func (fakePlan) LastPlan() *planner.Result {
	return &planner.Result{RunID: "run-1", Inserted: 4}
}

func (fakePlan) NextPlan() (time.Time, time.Time) {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

type fakeEntities []string

func (f fakeEntities) IDs() []string { return f }

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

var due = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func testServer(t *testing.T, mutate func(*Deps)) (*Server, *fakeReader) {
	t.Helper()
	reader := &fakeReader{records: []actionlog.Record{
		{ID: "r1", EntityID: "plant-01", Command: "pump_on", Status: actionlog.StatusOK, Timestamp: due},
	}}
	deps := Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0, Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}},
		Logger: logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test"),
		Scheduler: fakePending{
			{At: due, Priority: 1, Command: command.PumpOn, Metadata: map[string]string{action.MetaAction: "water"}},
		},
		Log:      reader,
		Stats:    fakeStats{Logged: 3, LoggedFailed: 1},
		Planner:  fakePlan{},
		Entities: fakeEntities{"plant-01", "plant-02"},
		Version:  "test",
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, reader
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid JSON %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestNew_RequiresDeps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"logger", func(d *Deps) { d.Logger = nil }},
		{"scheduler", func(d *Deps) { d.Scheduler = nil }},
		{"log", func(d *Deps) { d.Log = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{
				Logger:    logging.Default(),
				Scheduler: fakePending{},
				Log:       &fakeReader{},
			}
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Errorf("New() without %s should fail", tt.name)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec, body := get(t, srv, "/api/v1/health")
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _ := testServer(t, func(d *Deps) {
		d.Health = map[string]HealthChecker{
			"database": fakeHealth{},
			"mqtt":     fakeHealth{err: errors.New("not connected")},
		}
	})
	rec, body := get(t, srv, "/api/v1/health")
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("health = %d %v", rec.Code, body)
	}
	comps := body["components"].(map[string]any)
	if comps["database"] != "ok" || comps["mqtt"] != "not connected" {
		t.Errorf("components = %v", comps)
	}
}

func TestSchedule(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec, body := get(t, srv, "/api/v1/schedule")
	if rec.Code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("schedule = %d %v", rec.Code, body)
	}
	entry := body["entries"].([]any)[0].(map[string]any)
	if entry["command"] != "pump_on" {
		t.Errorf("entry = %v", entry)
	}

	empty, _ := testServer(t, func(d *Deps) { d.Scheduler = fakePending(nil) })
	_, body = get(t, empty, "/api/v1/schedule")
	if entries, ok := body["entries"].([]any); !ok || len(entries) != 0 {
		t.Errorf("empty schedule entries = %v, want []", body["entries"])
	}
}

func TestPlan(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec, body := get(t, srv, "/api/v1/plan")
	if rec.Code != http.StatusOK || body["next_day"] != "2026-03-02" {
		t.Errorf("plan = %d %v", rec.Code, body)
	}

	noPlanner, _ := testServer(t, func(d *Deps) { d.Planner = nil })
	if rec, _ := get(t, noPlanner, "/api/v1/plan"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("plan without planner = %d, want 503", rec.Code)
	}
}

func TestStatsAndEntities(t *testing.T) {
	srv, _ := testServer(t, nil)
	_, body := get(t, srv, "/api/v1/stats")
	if body["logged"] != float64(3) || body["logged_failed"] != float64(1) {
		t.Errorf("stats = %v", body)
	}
	_, body = get(t, srv, "/api/v1/entities")
	if body["count"] != float64(2) {
		t.Errorf("entities = %v", body)
	}
}

func TestLogs(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, f actionlog.Filter)
	}{
		{
			name:       "all",
			path:       "/api/v1/logs",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f actionlog.Filter) {
				if f != (actionlog.Filter{}) {
					t.Errorf("filter = %+v, want zero", f)
				}
			},
		},
		{
			name:       "entity and filters",
			path:       "/api/v1/logs/plant-01?command=PUMP-ON&since=2026-03-01T00:00:00Z&limit=10",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f actionlog.Filter) {
				if f.EntityID != "plant-01" || f.Command != "pump_on" || f.Limit != 10 || f.Since.IsZero() {
					t.Errorf("filter = %+v", f)
				}
			},
		},
		{name: "bad command", path: "/api/v1/logs?command=mist", wantStatus: http.StatusBadRequest},
		{name: "bad since", path: "/api/v1/logs?since=yesterday", wantStatus: http.StatusBadRequest},
		{name: "bad limit", path: "/api/v1/logs?limit=-4", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reader := testServer(t, nil)
			rec, body := get(t, srv, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", rec.Code, tt.wantStatus, body)
			}
			if tt.check != nil {
				tt.check(t, reader.last)
				if body["count"] != float64(1) {
					t.Errorf("count = %v", body["count"])
				}
			}
		})
	}
}

func TestLogs_ReaderErrors(t *testing.T) {
	srv, reader := testServer(t, nil)

	reader.err = actionlog.ErrInvalidEntity
	if rec, _ := get(t, srv, "/api/v1/logs/bad..id"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid entity status = %d, want 400", rec.Code)
	}

	reader.err = errors.New("disk gone")
	if rec, body := get(t, srv, "/api/v1/logs"); rec.Code != http.StatusInternalServerError || body["code"] != ErrCodeInternal {
		t.Errorf("reader failure = %d %v", rec.Code, body)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec, body := get(t, srv, "/api/v1/devices")
	if rec.Code != http.StatusNotFound || body["code"] != ErrCodeNotFound {
		t.Errorf("unknown route = %d %v", rec.Code, body)
	}
}

func TestStartAndClose(t *testing.T) {
	srv, _ := testServer(t, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		srv.Close() //nolint:errcheck // Test cleanup
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
