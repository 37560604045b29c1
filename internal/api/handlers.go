// Package api exposes HTTP handlers for the sync service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/daypulse-dev/daypulse/internal/auth"
	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/observability"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/summaries", h.getSummary)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeTrackingSync) {
		writeError(w, http.StatusForbidden, "scope tracking:sync required")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		observability.RecordSync("rejected", 0)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	result, err := h.service.SyncDay(r.Context(), req.toInput())
	if err != nil {
		observability.RecordSync("error", 0)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	observability.RecordSync("success", time.Since(start))

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:        true,
		DailySummaryID: result.SummaryID,
	})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeTrackingRead) && !claims.HasScope(auth.ScopeTrackingSync) {
		writeError(w, http.StatusForbidden, "scope tracking:read required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user_id parameter")
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := h.service.GetSummary(r.Context(), userID, date)
	if err != nil {
		if errors.Is(err, domain.ErrSummaryNotFound) {
			writeError(w, http.StatusNotFound, "daily summary not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSummaryView(*summary))
}

// SyncRequest is the payload for POST /v1/sync.
type SyncRequest struct {
	UserID     string            `json:"userId"`
	Summary    *SummaryPayload   `json:"summary"`
	Activities []ActivityPayload `json:"activities"`
}

// SummaryPayload carries the complete day's aggregate. Category totals are
// trusted as sent; drift against totalActiveSeconds is an upstream concern
// and is recorded as-is.
type SummaryPayload struct {
	Date               time.Time             `json:"date"`
	TotalActiveSeconds int                   `json:"totalActiveSeconds"`
	CategoryTotals     domain.CategoryTotals `json:"categoryTotals"`
	FocusWindow        *FocusWindowPayload   `json:"focusWindow,omitempty"`
	TopDomains         []domain.DomainTotal  `json:"topDomains,omitempty"`
	ContextSwitchCount int                   `json:"contextSwitchCount,omitempty"`
}

// FocusWindowPayload is the wire shape of the focus window.
type FocusWindowPayload struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ActivityPayload is one detail-log entry of the batch.
type ActivityPayload struct {
	Domain          string    `json:"domain"`
	Category        string    `json:"category"`
	DurationSeconds int       `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// Validate checks required fields only; no mutation happens on failure.
func (r SyncRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("userId is required")
	}
	if r.Summary == nil {
		return errors.New("summary is required")
	}
	if r.Summary.Date.IsZero() {
		return errors.New("summary.date is required")
	}
	return nil
}

func (r SyncRequest) toInput() domain.SyncDayInput {
	summary := domain.DailySummary{
		Date:               r.Summary.Date,
		TotalActiveSeconds: r.Summary.TotalActiveSeconds,
		CategoryTotals:     r.Summary.CategoryTotals,
		TopDomains:         r.Summary.TopDomains,
		ContextSwitchCount: r.Summary.ContextSwitchCount,
	}
	if r.Summary.FocusWindow != nil {
		summary.FocusWindow = &domain.FocusWindow{
			Start: r.Summary.FocusWindow.Start,
			End:   r.Summary.FocusWindow.End,
		}
	}

	activities := make([]domain.ActivityEvent, 0, len(r.Activities))
	for _, a := range r.Activities {
		activities = append(activities, domain.ActivityEvent{
			Domain:          a.Domain,
			Category:        domain.Category(a.Category),
			DurationSeconds: a.DurationSeconds,
			OccurredAt:      a.Timestamp,
		})
	}

	return domain.SyncDayInput{
		UserID:     r.UserID,
		Summary:    summary,
		Activities: activities,
	}
}

// SyncResponse describes the response body for a successful sync.
type SyncResponse struct {
	Success        bool   `json:"success"`
	DailySummaryID string `json:"dailySummaryId"`
}

// SummaryView exposes a stored daily summary.
type SummaryView struct {
	DailySummaryID     string                `json:"dailySummaryId"`
	UserID             string                `json:"userId"`
	Date               string                `json:"date"`
	TotalActiveSeconds int                   `json:"totalActiveSeconds"`
	CategoryTotals     domain.CategoryTotals `json:"categoryTotals"`
	FocusWindow        *FocusWindowPayload   `json:"focusWindow,omitempty"`
	TopDomains         []domain.DomainTotal  `json:"topDomains,omitempty"`
	ContextSwitchCount int                   `json:"contextSwitchCount"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

func toSummaryView(s domain.DailySummary) SummaryView {
	view := SummaryView{
		DailySummaryID:     s.ID,
		UserID:             s.UserID,
		Date:               s.Date.Format("2006-01-02"),
		TotalActiveSeconds: s.TotalActiveSeconds,
		CategoryTotals:     s.CategoryTotals,
		TopDomains:         s.TopDomains,
		ContextSwitchCount: s.ContextSwitchCount,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.FocusWindow != nil {
		view.FocusWindow = &FocusWindowPayload{Start: s.FocusWindow.Start, End: s.FocusWindow.End}
	}
	return view
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
