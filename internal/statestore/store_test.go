package statestore

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStorePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	s := New(path)

	rec := Record{
		RunID:      "run-1",
		Seed:       "sort integers",
		Status:     StatusRunning,
		BestScore:  6.5,
		RoundsDone: 2,
		Snapshot:   json.RawMessage(`{"artifact":"print(2)"}`),
	}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("run-1")
	if !ok {
		t.Fatalf("Get missed after Put")
	}
	if got.Status != StatusRunning || got.BestScore != 6.5 || got.RoundsDone != 2 {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if string(got.Snapshot) != `{"artifact":"print(2)"}` {
		t.Fatalf("snapshot mismatch: %s", got.Snapshot)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	s := New(path)
	if err := s.Put(Record{RunID: "run-a", Seed: "x", Status: StatusComplete}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened := New(path)
	got, ok := reopened.Get("run-a")
	if !ok || got.Status != StatusComplete {
		t.Fatalf("run not recovered after reopen: %+v ok=%v", got, ok)
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs.json"))
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.Put(Record{RunID: id, UpdatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	got := s.List()
	if len(got) != 3 || got[0].RunID != "new" || got[2].RunID != "old" {
		t.Fatalf("ordering wrong: %+v", got)
	}
}

func TestBlankRunIDIsIgnored(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs.json"))
	if err := s.Put(Record{RunID: "   "}); err != nil {
		t.Fatalf("Put blank: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("blank id stored: %+v", got)
	}
}
