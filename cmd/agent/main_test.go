package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daypulse-dev/daypulse/internal/config"
	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/session"
	"github.com/daypulse-dev/daypulse/internal/syncclient"
)

var testDay = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func TestFailedSyncKeepsOldDayThroughMidnight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "store unavailable"})
	}))
	defer srv.Close()

	store := session.NewStore(session.Config{}, testDay)
	store.RecordActivity("github.com", domain.CategoryBuilding, 600, testDay.Add(23*time.Hour))

	cfg := config.Config{SyncUserID: "user-1"}
	client := syncclient.NewClient(srv.URL, "")

	// First cycle after midnight: the sync fails, so the old day must not
	// be rolled over and its events must survive for the next attempt.
	afterMidnight := testDay.Add(24*time.Hour + 30*time.Second)
	runSyncCycle(context.Background(), cfg, store, client, afterMidnight)

	require.Equal(t, testDay, store.Date())
	require.Len(t, store.Flush().Events, 1)
}

func TestCleanSyncRollsDayOver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "dailySummaryId": "sum-1"})
	}))
	defer srv.Close()

	store := session.NewStore(session.Config{}, testDay)
	store.RecordActivity("github.com", domain.CategoryBuilding, 600, testDay.Add(23*time.Hour))

	cfg := config.Config{SyncUserID: "user-1"}
	client := syncclient.NewClient(srv.URL, "")

	afterMidnight := testDay.Add(24*time.Hour + 30*time.Second)
	runSyncCycle(context.Background(), cfg, store, client, afterMidnight)

	require.Equal(t, domain.DayOf(afterMidnight), store.Date())
	require.Empty(t, store.Flush().Events)
}

func TestEmptyDayStillRollsOver(t *testing.T) {
	store := session.NewStore(session.Config{}, testDay)

	cfg := config.Config{SyncUserID: "user-1"}
	client := syncclient.NewClient("http://127.0.0.1:1", "")

	afterMidnight := testDay.Add(24 * time.Hour)
	runSyncCycle(context.Background(), cfg, store, client, afterMidnight)

	require.Equal(t, domain.DayOf(afterMidnight), store.Date())
}
