//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/daypulse-dev/daypulse/internal/domain"
)

func setupRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("daypulse"),
		postgrescontainer.WithUsername("daypulse"),
		postgrescontainer.WithPassword("daypulse"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool)
}

func sampleInput(userID string, activities []domain.ActivityEvent) domain.SyncDayInput {
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	return domain.SyncDayInput{
		UserID: userID,
		Summary: domain.DailySummary{
			UserID:             userID,
			Date:               date,
			TotalActiveSeconds: 5400,
			CategoryTotals: domain.CategoryTotals{
				Communication: 1200,
				Building:      3000,
				Research:      600,
				Meetings:      600,
			},
			FocusWindow: &domain.FocusWindow{
				Start: date.Add(9 * time.Hour),
				End:   date.Add(10*time.Hour + 30*time.Minute),
			},
			TopDomains: []domain.DomainTotal{
				{Domain: "github.com", Seconds: 3000},
				{Domain: "slack.com", Seconds: 1200},
			},
			ContextSwitchCount: 14,
		},
		Activities: activities,
	}
}

func TestUpsertDayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	activities := []domain.ActivityEvent{
		{Domain: "github.com", Category: domain.CategoryBuilding, DurationSeconds: 3000, OccurredAt: date.Add(9 * time.Hour)},
		{Domain: "slack.com", Category: domain.CategoryCommunication, DurationSeconds: 1200, OccurredAt: date.Add(10 * time.Hour)},
	}
	input := sampleInput("user-1", activities)

	first, err := repo.UpsertDay(ctx, input)
	require.NoError(t, err)
	require.True(t, first.UserCreated)

	second, err := repo.UpsertDay(ctx, input)
	require.NoError(t, err)
	require.False(t, second.UserCreated, "user is provisioned exactly once")
	require.Equal(t, first.SummaryID, second.SummaryID, "same (user, date) key maps to one row")

	stored, err := repo.GetSummary(ctx, "user-1", date)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, 5400, stored.TotalActiveSeconds)
	require.Equal(t, input.Summary.CategoryTotals, stored.CategoryTotals)
	require.Equal(t, 14, stored.ContextSwitchCount)
	require.NotNil(t, stored.FocusWindow)
	require.True(t, stored.FocusWindow.Start.Equal(input.Summary.FocusWindow.Start))
	require.Equal(t, input.Summary.TopDomains, stored.TopDomains, "topDomains round-trips losslessly")

	logs, err := repo.ListLogs(ctx, first.SummaryID)
	require.NoError(t, err)
	require.Len(t, logs, len(activities), "re-syncs leave exactly one copy of the batch")
}

func TestUpsertDayReplacesActivityLog(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	input := sampleInput("user-1", []domain.ActivityEvent{
		{Domain: "a.example", Category: domain.CategoryBuilding, DurationSeconds: 600, OccurredAt: date.Add(9 * time.Hour)},
		{Domain: "b.example", Category: domain.CategoryResearch, DurationSeconds: 300, OccurredAt: date.Add(10 * time.Hour)},
	})
	first, err := repo.UpsertDay(ctx, input)
	require.NoError(t, err)

	replacement := sampleInput("user-1", []domain.ActivityEvent{
		{Domain: "c.example", Category: domain.CategoryAdmin, DurationSeconds: 120, OccurredAt: date.Add(11 * time.Hour)},
	})
	second, err := repo.UpsertDay(ctx, replacement)
	require.NoError(t, err)
	require.Equal(t, first.SummaryID, second.SummaryID)

	logs, err := repo.ListLogs(ctx, first.SummaryID)
	require.NoError(t, err)
	require.Len(t, logs, 1, "detail log reflects exactly the latest batch")
	require.Equal(t, "c.example", logs[0].Domain)
}

func TestUpsertDayKeepsLogsWhenBatchEmpty(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	input := sampleInput("user-1", []domain.ActivityEvent{
		{Domain: "a.example", Category: domain.CategoryBuilding, DurationSeconds: 600, OccurredAt: date.Add(9 * time.Hour)},
	})
	first, err := repo.UpsertDay(ctx, input)
	require.NoError(t, err)

	aggregateOnly := sampleInput("user-1", nil)
	aggregateOnly.Summary.TotalActiveSeconds = 6000
	_, err = repo.UpsertDay(ctx, aggregateOnly)
	require.NoError(t, err)

	stored, err := repo.GetSummary(ctx, "user-1", date)
	require.NoError(t, err)
	require.Equal(t, 6000, stored.TotalActiveSeconds, "aggregate fields fully replaced")

	logs, err := repo.ListLogs(ctx, first.SummaryID)
	require.NoError(t, err)
	require.Len(t, logs, 1, "empty batches keep the previous detail log")
}

func TestUpsertDaySelfProvisionsUser(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	result, err := repo.UpsertDay(ctx, sampleInput("brand-new-user", nil))
	require.NoError(t, err)
	require.True(t, result.UserCreated)

	var email string
	err = repo.pool.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, "brand-new-user").Scan(&email)
	require.NoError(t, err)
	require.Equal(t, "brand-new-user@pending.daypulse.dev", email)

	var count int
	err = repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestUpsertDayWritesOutboxEvents(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	result, err := repo.UpsertDay(ctx, sampleInput("user-1", nil))
	require.NoError(t, err)

	rows, err := repo.pool.Query(ctx, `SELECT event_type FROM outbox WHERE aggregate_id=$1 ORDER BY event_id`, result.SummaryID)
	require.NoError(t, err)
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var eventType string
		require.NoError(t, rows.Scan(&eventType))
		types = append(types, eventType)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"user.provisioned", "summary.synced"}, types)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
