package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"autoforge/internal/refine"
)

// handleWatchSSE streams run events as Server-Sent Events. The backlog is
// replayed first so late watchers see the full run.
func (h *Handler) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/api/watch/")
	if runID == "" {
		http.Error(w, "run_id required", http.StatusBadRequest)
		return
	}

	run, ok := h.mgr.Get(runID)
	if !ok {
		// The run may have finished already; serve its recorded events.
		rec, found := h.states.Get(runID)
		if !found {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		h.serveFinishedSSE(w, rec.Status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	backlog, events, cancel := run.Subscribe()
	defer cancel()

	ctx := r.Context()
	for _, evt := range backlog {
		writeSSE(w, evt)
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				fmt.Fprintf(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			writeSSE(w, evt)
			flusher.Flush()
			if evt.Type == refine.EventComplete || evt.Type == refine.EventCancelled {
				return
			}
		}
	}
}

func (h *Handler) serveFinishedSSE(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "data: %s\n\n", fmt.Sprintf(`{"type":"finished","status":%q}`, status))
	fmt.Fprintf(w, "event: close\ndata: {}\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, evt refine.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
