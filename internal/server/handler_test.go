package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autoforge/internal/refine"
	"autoforge/internal/runstream"
	"autoforge/internal/statestore"
)

type stubGen struct{}

func (stubGen) Propose(context.Context, refine.RoundContext) (string, error) {
	return "<<<COMMAND replace\nprint(2)\n>>>END", nil
}

type passVal struct{}

func (passVal) Check(context.Context, string) (refine.ValidationResult, error) {
	return refine.ValidationResult{Success: true}, nil
}

type fixedScore struct{}

func (fixedScore) Score(context.Context, string, refine.RoundContext) (float64, error) {
	return 8, nil
}

func newTestHandler(t *testing.T) (*Handler, *statestore.Store) {
	t.Helper()
	states := statestore.New(filepath.Join(t.TempDir(), "runs.json"))
	build := func(emit func(refine.Event)) *refine.Loop {
		return refine.New(stubGen{}, passVal{}, fixedScore{}, refine.Config{Events: emit})
	}
	mgr := runstream.NewManager(build, states, nil)
	return NewHandler(context.Background(), mgr, states), states
}

func startRun(t *testing.T, ts *httptest.Server, body string) startRunResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/runs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out startRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func waitForStatus(t *testing.T, states *statestore.Store, runID, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := states.Get(runID); ok && rec.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached %s", runID, want)
}

func TestStartAndGetRun(t *testing.T) {
	h, states := newTestHandler(t)
	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	started := startRun(t, ts, `{"seed":"print two","max_rounds":1}`)
	waitForStatus(t, states, started.RunID, statestore.StatusComplete)

	resp, err := http.Get(ts.URL + "/api/runs/" + started.RunID)
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	defer resp.Body.Close()
	var rec statestore.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Status != statestore.StatusComplete || rec.BestScore != 8 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestStartRejectsMissingSeed(t *testing.T) {
	h, _ := newTestHandler(t)
	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/runs", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListRuns(t *testing.T) {
	h, states := newTestHandler(t)
	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	started := startRun(t, ts, `{"seed":"x","max_rounds":1}`)
	waitForStatus(t, states, started.RunID, statestore.StatusComplete)

	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET list: %v", err)
	}
	defer resp.Body.Close()
	var got []runSummary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].RunID != started.RunID {
		t.Fatalf("list = %+v", got)
	}
}

func TestGetUnknownRunIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWatchSSEStreamsEvents(t *testing.T) {
	h, states := newTestHandler(t)
	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	started := startRun(t, ts, `{"seed":"x","max_rounds":1}`)

	resp, err := http.Get(ts.URL + "/api/watch/" + started.RunID)
	if err != nil {
		t.Fatalf("GET watch: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		// A fast run may already be finished; its replay is also SSE.
		t.Fatalf("content type = %q", ct)
	}

	var sawData bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "data: ") {
			sawData = true
		}
	}
	if !sawData {
		t.Fatalf("no SSE data lines received")
	}
	waitForStatus(t, states, started.RunID, statestore.StatusComplete)
}
