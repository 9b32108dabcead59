package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"battleship/internal/coord"
	"battleship/internal/events"
	"battleship/internal/history"
	"battleship/internal/session"
)

type staticGame struct {
	snap session.Snapshot
}

func (g staticGame) Snapshot() session.Snapshot { return g.snap }

type memoryStore struct {
	matches map[string]history.MatchRecord
}

func (m memoryStore) Recent(ctx context.Context, limit int) ([]history.MatchRecord, error) {
	var out []history.MatchRecord
	for _, match := range m.matches {
		out = append(out, match)
	}
	return out, nil
}

func (m memoryStore) Match(ctx context.Context, id string) (*history.MatchRecord, error) {
	match, ok := m.matches[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &match, nil
}

func testSnapshot() session.Snapshot {
	return session.Snapshot{
		SessionID: "live",
		Role:      session.RoleServer,
		State:     session.StateYourTurn.String(),
		Phase:     session.PhaseInProgress,
		Turn:      session.RoleServer,
		Width:     10,
		Height:    10,
		Shots: []session.Shot{
			{Seq: 1, By: session.RoleClient, Target: coord.Pt(1, 1), Label: "B2", Result: "HIT"},
			{Seq: 2, By: session.RoleServer, Target: coord.Pt(0, 0), Label: "A1", Result: "WATER"},
		},
	}
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	s := NewServer(staticGame{snap: testSnapshot()}, events.NewHub())
	s.SetMatchStore(memoryStore{matches: map[string]history.MatchRecord{
		"old": {SessionID: "old", Outcome: "won"},
	}})
	s.Setup()
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, newTestServer(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" || body["state"] != "YOUR_TURN" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetGame(t *testing.T) {
	w := get(t, newTestServer(), "/api/v1/game")
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.SessionID != "live" || snap.Turn != session.RoleServer || len(snap.Shots) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGetGameHidesFleetUntilFinished(t *testing.T) {
	gin.SetMode(gin.TestMode)
	snap := testSnapshot()
	snap.Ships = []session.ShipView{{Cells: []coord.Point{coord.Pt(3, 3)}}}

	for _, tc := range []struct {
		state     session.State
		wantShips int
	}{
		{session.StatePlacingShips, 0},
		{session.StateYourTurn, 0},
		{session.StateFinished, 1},
	} {
		snap.State = tc.state.String()
		snap.Phase = tc.state.Phase()
		s := NewServer(staticGame{snap: snap}, nil)
		s.Setup()

		w := get(t, s, "/api/v1/game")
		var got session.Snapshot
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got.Ships) != tc.wantShips {
			t.Fatalf("%s: ships = %v", tc.state, got.Ships)
		}
	}
}

func TestGetShotsFiltered(t *testing.T) {
	w := get(t, newTestServer(), "/api/v1/game/shots?by=client")
	var body struct {
		Count int            `json:"count"`
		Shots []session.Shot `json:"shots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 1 || body.Shots[0].Label != "B2" {
		t.Fatalf("body = %+v", body)
	}

	w = get(t, newTestServer(), "/api/v1/game/shots?by=nobody")
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 0 || body.Shots == nil {
		t.Fatalf("body = %+v", body)
	}
}

func TestGameReport(t *testing.T) {
	w := get(t, newTestServer(), "/api/v1/game/report.xlsx")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("status = %d, type = %q", w.Code, w.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Shots")
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows = %v, err = %v", rows, err)
	}
}

func TestMatches(t *testing.T) {
	s := newTestServer()

	if w := get(t, s, "/api/v1/matches"); w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if w := get(t, s, "/api/v1/matches/old"); w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w := get(t, s, "/api/v1/matches/missing"); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
	if w := get(t, s, "/api/v1/matches/old/report.xlsx"); w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
}

func TestOptionalRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(staticGame{snap: testSnapshot()}, nil)
	s.Setup()

	for _, path := range []string{"/api/v1/matches", "/api/v1/sessions/x", "/ws/stats"} {
		if w := get(t, s, path); w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, w.Code)
		}
	}
}
