package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/events"
	"github.com/daypulse-dev/daypulse/internal/observability"
)

// Repository provides Postgres-backed persistence for daily summaries,
// activity logs, and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// placeholderEmail synthesizes the identity used when a sync arrives for a
// user the identity service has not registered yet.
func placeholderEmail(userID string) string {
	return fmt.Sprintf("%s@pending.daypulse.dev", userID)
}

// UpsertDay performs the whole sync write as one transaction: ensure the user
// exists, upsert the summary keyed by (user_id, date), and, when activities
// are present, delete the old activity log and bulk-insert the new batch.
// The ON CONFLICT update takes the summary row lock up front, so concurrent
// syncs for the same key serialize their delete/insert pairs.
func (r *Repository) UpsertDay(ctx context.Context, input domain.SyncDayInput) (domain.SyncDayResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.SyncDayResult{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	result := domain.SyncDayResult{}

	tag, err := tx.Exec(ctx,
		`INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)
         ON CONFLICT (id) DO NOTHING`,
		input.UserID, placeholderEmail(input.UserID), now,
	)
	if err != nil {
		return domain.SyncDayResult{}, err
	}
	result.UserCreated = tag.RowsAffected() == 1

	summary := input.Summary
	categoryTotals, err := json.Marshal(summary.CategoryTotals)
	if err != nil {
		return domain.SyncDayResult{}, err
	}
	topDomains, err := json.Marshal(summary.TopDomains)
	if err != nil {
		return domain.SyncDayResult{}, err
	}

	var focusStart, focusEnd *time.Time
	if summary.FocusWindow != nil {
		focusStart = &summary.FocusWindow.Start
		focusEnd = &summary.FocusWindow.End
	}

	// Full replace of the aggregate fields, never a merge: the client always
	// sends the complete day's totals.
	const upsert = `INSERT INTO daily_summaries
            (id, user_id, date, total_active_seconds, category_totals, focus_start, focus_end, top_domains, context_switch_count, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
        ON CONFLICT (user_id, date) DO UPDATE SET
            total_active_seconds = EXCLUDED.total_active_seconds,
            category_totals = EXCLUDED.category_totals,
            focus_start = EXCLUDED.focus_start,
            focus_end = EXCLUDED.focus_end,
            top_domains = EXCLUDED.top_domains,
            context_switch_count = EXCLUDED.context_switch_count,
            updated_at = EXCLUDED.updated_at
        RETURNING id`

	var summaryID string
	err = tx.QueryRow(ctx, upsert,
		uuid.NewString(),
		input.UserID,
		summary.Date,
		summary.TotalActiveSeconds,
		categoryTotals,
		focusStart,
		focusEnd,
		topDomains,
		summary.ContextSwitchCount,
		now,
	).Scan(&summaryID)
	if err != nil {
		return domain.SyncDayResult{}, err
	}
	result.SummaryID = summaryID

	// An empty batch keeps whatever log the last sync left in place.
	if len(input.Activities) > 0 {
		if _, err = tx.Exec(ctx, `DELETE FROM activity_logs WHERE summary_id = $1`, summaryID); err != nil {
			return domain.SyncDayResult{}, err
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"activity_logs"},
			[]string{"summary_id", "domain", "category", "duration_seconds", "occurred_at"},
			pgx.CopyFromSlice(len(input.Activities), func(i int) ([]interface{}, error) {
				ev := input.Activities[i]
				return []interface{}{summaryID, ev.Domain, string(ev.Category), ev.DurationSeconds, ev.OccurredAt}, nil
			}),
		)
		if err != nil {
			return domain.SyncDayResult{}, err
		}
	}

	if result.UserCreated {
		if err = r.insertOutbox(ctx, tx, input.UserID, summaryID, "user.provisioned", events.UserProvisioned{
			UserID:    input.UserID,
			Email:     placeholderEmail(input.UserID),
			CreatedAt: now,
		}); err != nil {
			return domain.SyncDayResult{}, err
		}
	}

	if err = r.insertOutbox(ctx, tx, input.UserID, summaryID, "summary.synced", events.SummarySynced{
		SummaryID:          summaryID,
		UserID:             input.UserID,
		Date:               summary.Date,
		TotalActiveSeconds: summary.TotalActiveSeconds,
		ContextSwitchCount: summary.ContextSwitchCount,
		ActivityCount:      len(input.Activities),
		SyncedAt:           now,
	}); err != nil {
		return domain.SyncDayResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.SyncDayResult{}, err
	}

	observability.RecordSummaryPersisted(now)
	if result.UserCreated {
		observability.RecordUserProvisioned()
	}
	return result, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, userID, summaryID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"daily_summary",
		summaryID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		userID,
		body,
	)
	return err
}

// GetSummary retrieves the summary for a user and calendar day. Returns nil
// without error when no row exists.
func (r *Repository) GetSummary(ctx context.Context, userID string, date time.Time) (*domain.DailySummary, error) {
	const query = `SELECT id, user_id, date, total_active_seconds, category_totals, focus_start, focus_end, top_domains, context_switch_count, created_at, updated_at
        FROM daily_summaries WHERE user_id=$1 AND date=$2`

	row := r.pool.QueryRow(ctx, query, userID, date)

	var (
		summary        domain.DailySummary
		categoryTotals []byte
		topDomains     []byte
		focusStart     *time.Time
		focusEnd       *time.Time
	)
	err := row.Scan(&summary.ID, &summary.UserID, &summary.Date, &summary.TotalActiveSeconds,
		&categoryTotals, &focusStart, &focusEnd, &topDomains, &summary.ContextSwitchCount,
		&summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(categoryTotals, &summary.CategoryTotals); err != nil {
		return nil, err
	}
	if len(topDomains) > 0 {
		if err := json.Unmarshal(topDomains, &summary.TopDomains); err != nil {
			return nil, err
		}
	}
	if focusStart != nil && focusEnd != nil {
		summary.FocusWindow = &domain.FocusWindow{Start: focusStart.UTC(), End: focusEnd.UTC()}
	}
	summary.Date = summary.Date.UTC()

	return &summary, nil
}

// ListLogs returns the activity log owned by a summary in insertion order.
func (r *Repository) ListLogs(ctx context.Context, summaryID string) ([]domain.ActivityEvent, error) {
	const query = `SELECT domain, category, duration_seconds, occurred_at
        FROM activity_logs WHERE summary_id=$1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, summaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.ActivityEvent, 0)
	for rows.Next() {
		var (
			ev       domain.ActivityEvent
			category string
		)
		if err := rows.Scan(&ev.Domain, &category, &ev.DurationSeconds, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.Category = domain.Category(category)
		ev.OccurredAt = ev.OccurredAt.UTC()
		logs = append(logs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"summary.synced": {
		Topic:         "daily_summary_events",
		SchemaSubject: "daily_summary_events-value",
	},
	"user.provisioned": {
		Topic:         "user_events",
		SchemaSubject: "user_events-value",
	},
}
