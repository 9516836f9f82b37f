package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"autoforge/internal/refine"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsOutbound struct {
	Type    string  `json:"type"`
	RunID   string  `json:"runId,omitempty"`
	Round   int     `json:"round,omitempty"`
	Attempt int     `json:"attempt,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Message string  `json:"message,omitempty"`
}

// handleRunWS streams run events over a websocket. Inbound traffic is only
// pings; the stream closes on terminal events.
func (h *Handler) handleRunWS(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/ws/runs/")
	if runID == "" {
		http.Error(w, "run_id required", http.StatusBadRequest)
		return
	}
	run, ok := h.mgr.Get(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		log.Printf("run ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Reader goroutine: drains control frames and detects disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	backlog, events, unsubscribe := run.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	send := func(out wsOutbound) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(out) == nil
	}

	if !send(wsOutbound{Type: "subscribed", RunID: runID}) {
		return
	}
	for _, evt := range backlog {
		if !send(outbound(runID, evt)) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				send(wsOutbound{Type: "closed", RunID: runID})
				return
			}
			if !send(outbound(runID, evt)) {
				return
			}
			if evt.Type == refine.EventComplete || evt.Type == refine.EventCancelled {
				send(wsOutbound{Type: "closed", RunID: runID})
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func outbound(runID string, evt refine.Event) wsOutbound {
	return wsOutbound{
		Type:    string(evt.Type),
		RunID:   runID,
		Round:   evt.Round,
		Attempt: evt.Attempt,
		Score:   evt.Score,
		Message: evt.Message,
	}
}
