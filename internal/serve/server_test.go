package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/archive"
	"github.com/templetwo/breakthrough/internal/engine"
	"github.com/templetwo/breakthrough/internal/narrate"
)

type stubSource struct{}

func (stubSource) Float64() float64 { return 0 }

func testServer(t *testing.T) (*Server, *archive.Store, *narrate.Broadcaster) {
	t.Helper()

	controller, err := adaptive.NewController(adaptive.DefaultConstraints(), adaptive.WithSeed(1))
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	store, err := archive.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	broadcaster := narrate.NewBroadcaster(nil)
	return NewServer(controller, store, broadcaster, nil), store, broadcaster
}

func archiveSession(t *testing.T, store *archive.Store) int64 {
	t.Helper()

	o := engine.NewOrchestrator(engine.DefaultRoster(), stubSource{})
	session, err := o.Pursue(context.Background(), "serving test problem", 1, 0.01)
	if err != nil {
		t.Fatalf("Pursue() error: %v", err)
	}
	id, err := store.SaveSession(session)
	if err != nil {
		t.Fatalf("SaveSession() error: %v", err)
	}
	return id
}

func getJSON(t *testing.T, ts *httptest.Server, path string, v any) *http.Response {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s error: %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var body map[string]string
	resp := getJSON(t, ts, "/healthz", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestDashboardEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var state adaptive.DashboardState
	resp := getJSON(t, ts, "/api/dashboard", &state)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if state.PerformanceScore < 0 || state.PerformanceScore > 1 {
		t.Errorf("PerformanceScore = %v, want within [0,1]", state.PerformanceScore)
	}
	if state.Constraints.TimeoutSeconds == 0 {
		t.Error("constraints missing from dashboard response")
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	srv, store, _ := testServer(t)
	id := archiveSession(t, store)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var list struct {
		Sessions []archive.SessionSummary `json:"sessions"`
		Count    int                      `json:"count"`
	}
	resp := getJSON(t, ts, "/api/sessions", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if list.Count != 1 || len(list.Sessions) != 1 {
		t.Fatalf("list = %+v, want one session", list)
	}

	var session engine.Session
	resp = getJSON(t, ts, fmt.Sprintf("/api/sessions/%d", id), &session)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if session.Problem != "serving test problem" {
		t.Errorf("Problem = %q", session.Problem)
	}

	resp = getJSON(t, ts, "/api/sessions/999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", resp.StatusCode)
	}

	resp = getJSON(t, ts, "/api/sessions/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}

	resp = getJSON(t, ts, "/api/sessions?limit=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestImprovementsEndpoint(t *testing.T) {
	t.Parallel()

	srv, store, _ := testServer(t)
	event := adaptive.ImprovementEvent{
		Timestamp:           time.Now().UTC(),
		ConstraintsSnapshot: adaptive.DefaultConstraints(),
	}
	if err := store.SaveImprovementEvent(event); err != nil {
		t.Fatalf("SaveImprovementEvent() error: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var body struct {
		Count int `json:"count"`
	}
	resp := getJSON(t, ts, "/api/improvements", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestWebsocketStreamsNarration(t *testing.T) {
	t.Parallel()

	srv, _, broadcaster := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to be registered before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for broadcaster.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	broadcaster.Notify("cycle 1 starting", "dimensional")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event narrate.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if event.Text != "cycle 1 starting" || event.Type != "dimensional" {
		t.Errorf("event = %+v", event)
	}
}
