// Package agent exposes the local status surface for the capture agent:
// raw signal ingress, alive reports, today's totals, tracking state, and the
// pause toggle.
package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/presence"
	"github.com/daypulse-dev/daypulse/internal/session"
)

// Tracking states reported to surfaces. A disabled detector reads as stopped
// and stays stopped for the rest of the process lifetime.
const (
	TrackingActive  = "active"
	TrackingPaused  = "paused"
	TrackingStopped = "stopped"
)

// Handler serves the loopback HTTP surface over the shared session store and
// detector.
type Handler struct {
	store    *session.Store
	detector *presence.Detector
	now      func() time.Time
}

// NewHandler builds a Handler. The clock is injectable for tests.
func NewHandler(store *session.Store, detector *presence.Detector, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{store: store, detector: detector, now: now}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/signal", h.signal)
	mux.HandleFunc("/v1/totals", h.totals)
	mux.HandleFunc("/v1/state", h.state)
	mux.HandleFunc("/v1/pause", h.pause)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SignalRequest is one raw interaction signal from a capture surface. Domain
// and category describe what is foregrounded while the interaction happened.
type SignalRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

func (h *Handler) signal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if req.Domain != "" {
		h.store.SetFocus(req.Domain, domain.Category(req.Category))
	}

	if err := h.detector.Signal(h.now()); err != nil {
		if errors.Is(err, presence.ErrDisabled) {
			writeError(w, http.StatusConflict, "tracking stopped")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TotalsResponse mirrors the session totals for popup-style surfaces.
type TotalsResponse struct {
	Date               string                `json:"date"`
	TotalActiveSeconds int                   `json:"totalActiveSeconds"`
	TotalActiveLabel   string                `json:"totalActiveLabel"`
	CategoryTotals     domain.CategoryTotals `json:"categoryTotals"`
	ContextSwitchCount int                   `json:"contextSwitchCount"`
	Tracking           string                `json:"tracking"`
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	totals := h.store.Totals()
	writeJSON(w, http.StatusOK, TotalsResponse{
		Date:               totals.Date.Format("2006-01-02"),
		TotalActiveSeconds: totals.TotalActiveSeconds,
		TotalActiveLabel:   session.FormatDuration(totals.TotalActiveSeconds),
		CategoryTotals:     totals.CategoryTotals,
		ContextSwitchCount: totals.ContextSwitchCount,
		Tracking:           h.trackingState(),
	})
}

// StateResponse reports the tracking state only.
type StateResponse struct {
	Tracking string `json:"tracking"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Tracking: h.trackingState()})
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	// A stopped detector cannot be paused or resumed back to life; surfaces
	// should show stopped instead of oscillating.
	if h.detector.Disabled() {
		writeError(w, http.StatusConflict, "tracking stopped")
		return
	}

	h.store.TogglePause()
	writeJSON(w, http.StatusOK, StateResponse{Tracking: h.trackingState()})
}

func (h *Handler) trackingState() string {
	if h.detector.Disabled() {
		return TrackingStopped
	}
	if h.store.Paused() {
		return TrackingPaused
	}
	return TrackingActive
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
