package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daypulse-dev/daypulse/internal/presence"
	"github.com/daypulse-dev/daypulse/internal/session"
)

var day = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*Handler, *session.Store, *presence.Detector, *fakeClock) {
	t.Helper()
	store := session.NewStore(session.Config{}, day)
	detector := presence.NewDetector(store)
	clock := &fakeClock{now: day.Add(9 * time.Hour)}
	return NewHandler(store, detector, clock.Now), store, detector, clock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSignalCreditsFocusedDomain(t *testing.T) {
	handler, store, _, clock := newFixture(t)

	for i := 0; i < 3; i++ {
		rr := postSignal(handler, `{"domain": "github.com", "category": "building"}`)
		require.Equal(t, http.StatusNoContent, rr.Code)
		clock.Advance(presence.ThrottleInterval)
	}

	totals := store.Totals()
	require.Equal(t, 30, totals.TotalActiveSeconds)
	require.Equal(t, 30, totals.CategoryTotals.Building)
}

func TestSignalThrottled(t *testing.T) {
	handler, store, _, clock := newFixture(t)

	// Twelve signals inside 11 seconds collapse to two alive reports.
	for i := 0; i < 12; i++ {
		rr := postSignal(handler, `{"domain": "github.com", "category": "building"}`)
		require.Equal(t, http.StatusNoContent, rr.Code)
		clock.Advance(time.Second)
	}

	require.Equal(t, 20, store.Totals().TotalActiveSeconds)
}

func TestStateReflectsPauseAndResume(t *testing.T) {
	handler, _, _, _ := newFixture(t)

	require.Equal(t, TrackingActive, getState(t, handler))

	rr := httptest.NewRecorder()
	handler.pause(rr, httptest.NewRequest(http.MethodPost, "/v1/pause", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, TrackingPaused, getState(t, handler))

	rr = httptest.NewRecorder()
	handler.pause(rr, httptest.NewRequest(http.MethodPost, "/v1/pause", nil))
	require.Equal(t, TrackingActive, getState(t, handler))
}

func TestDisabledDetectorReadsAsStopped(t *testing.T) {
	store := session.NewStore(session.Config{}, day)
	detector := presence.NewDetector(failingReporter{})
	clock := &fakeClock{now: day.Add(9 * time.Hour)}
	handler := NewHandler(store, detector, clock.Now)

	rr := postSignal(handler, `{"domain": "github.com", "category": "building"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	require.Equal(t, TrackingStopped, getState(t, handler))

	// The pause control refuses to oscillate once tracking stopped.
	rr = httptest.NewRecorder()
	handler.pause(rr, httptest.NewRequest(http.MethodPost, "/v1/pause", nil))
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestTotalsEndpoint(t *testing.T) {
	handler, store, _, _ := newFixture(t)
	store.RecordActivity("github.com", "building", 7500, day.Add(9*time.Hour))

	rr := httptest.NewRecorder()
	handler.totals(rr, httptest.NewRequest(http.MethodGet, "/v1/totals", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TotalsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "2026-03-02", resp.Date)
	require.Equal(t, 7500, resp.TotalActiveSeconds)
	require.Equal(t, "2h 05m", resp.TotalActiveLabel)
	require.Equal(t, TrackingActive, resp.Tracking)
}

type failingReporter struct{}

func (failingReporter) ReportAlive(time.Time) error { return errors.New("runtime torn down") }

func postSignal(handler *Handler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.signal(rr, httptest.NewRequest(http.MethodPost, "/v1/signal", strings.NewReader(body)))
	return rr
}

func getState(t *testing.T, handler *Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.state(rr, httptest.NewRequest(http.MethodGet, "/v1/state", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Tracking
}
