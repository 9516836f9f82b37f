package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"autoforge/internal/runstream"
	"autoforge/internal/statestore"
)

// Handler wires the run manager and state store to HTTP routes.
type Handler struct {
	mgr    *runstream.Manager
	states *statestore.Store

	// runCtx is the lifecycle context handed to started runs; request
	// contexts die with the request, runs must not.
	runCtx context.Context
}

func NewHandler(runCtx context.Context, mgr *runstream.Manager, states *statestore.Store) *Handler {
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &Handler{mgr: mgr, states: states, runCtx: runCtx}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRunByID)
	mux.HandleFunc("/api/watch/", h.handleWatchSSE)
	mux.HandleFunc("/ws/runs/", h.handleRunWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type startRunRequest struct {
	Seed      string  `json:"seed"`
	MaxRounds int     `json:"max_rounds"`
	Threshold float64 `json:"threshold"`
	ResumeID  string  `json:"resume_id"`
}

type startRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.startRun(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.listRuns())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	spec := runstream.RunSpec{
		Seed:      strings.TrimSpace(req.Seed),
		MaxRounds: req.MaxRounds,
		Threshold: req.Threshold,
	}

	var (
		run *runstream.Run
		err error
	)
	if resumeID := strings.TrimSpace(req.ResumeID); resumeID != "" {
		run, err = h.mgr.Resume(h.runCtx, resumeID, spec)
	} else {
		if spec.Seed == "" {
			http.Error(w, "seed is required", http.StatusBadRequest)
			return
		}
		run, err = h.mgr.Start(h.runCtx, spec)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, startRunResponse{RunID: run.ID, Status: runstream.StatusRunning})
}

type runSummary struct {
	RunID      string  `json:"run_id"`
	Seed       string  `json:"seed"`
	Status     string  `json:"status"`
	BestScore  float64 `json:"best_score"`
	RoundsDone int     `json:"rounds_done"`
}

func (h *Handler) listRuns() []runSummary {
	recs := h.states.List()
	out := make([]runSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, runSummary{
			RunID:      rec.RunID,
			Seed:       rec.Seed,
			Status:     rec.Status,
			BestScore:  rec.BestScore,
			RoundsDone: rec.RoundsDone,
		})
	}
	return out
}

func (h *Handler) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" {
		http.Error(w, "run_id required", http.StatusBadRequest)
		return
	}
	rec, ok := h.states.Get(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
