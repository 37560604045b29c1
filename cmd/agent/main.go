package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daypulse-dev/daypulse/internal/agent"
	"github.com/daypulse-dev/daypulse/internal/config"
	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/presence"
	"github.com/daypulse-dev/daypulse/internal/session"
	"github.com/daypulse-dev/daypulse/internal/syncclient"
	httptransport "github.com/daypulse-dev/daypulse/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if cfg.SyncUserID == "" {
		log.Fatal("SYNC_USER_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := session.NewStore(session.Config{}, time.Now())
	detector := presence.NewDetector(store)
	client := syncclient.NewClient(cfg.SyncURL, cfg.SyncToken)

	handler := agent.NewHandler(store, detector, nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.AgentAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, mux)

	go func() {
		log.Printf("daypulse-agent status surface on %s", cfg.AgentAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("status server error: %v", err)
		}
	}()

	go syncLoop(ctx, cfg, store, client)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	// Best-effort final sync so the day's tail is not lost on shutdown.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	syncOnce(flushCtx, cfg, store, client)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// syncLoop periodically flushes the session store to the API. Failed syncs
// leave the pending batch in place; the idempotent protocol makes blind
// resending on the next tick safe.
func syncLoop(ctx context.Context, cfg config.Config, store *session.Store, client *syncclient.Client) {
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSyncCycle(ctx, cfg, store, client, time.Now())
		}
	}
}

// runSyncCycle flushes the store and, once the old day is fully acknowledged,
// rolls the store over to the current calendar day. After a failed sync the
// old day stays intact so its events are resent on the next tick instead of
// being wiped at midnight.
func runSyncCycle(ctx context.Context, cfg config.Config, store *session.Store, client *syncclient.Client, now time.Time) {
	if !syncOnce(ctx, cfg, store, client) {
		return
	}
	if !store.Date().Equal(domain.DayOf(now)) {
		store.StartNewDay(now)
	}
}

// syncOnce flushes and submits one batch, reporting whether the day ended up
// fully acknowledged. An empty day counts as synced.
func syncOnce(ctx context.Context, cfg config.Config, store *session.Store, client *syncclient.Client) bool {
	batch := store.Flush()
	if batch.Summary.TotalActiveSeconds == 0 && len(batch.Events) == 0 {
		return true
	}

	summaryID, err := client.Sync(ctx, cfg.SyncUserID, batch)
	if err != nil {
		log.Printf("sync failed, will retry: %v", err)
		return false
	}
	store.Ack(batch)
	log.Printf("synced day %s as summary %s (%d activities)", batch.Summary.Date.Format("2006-01-02"), summaryID, len(batch.Events))
	return true
}
