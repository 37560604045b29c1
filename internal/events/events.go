// Package events defines payloads published to Kafka for downstream reporting.
package events

import "time"

// SummarySynced is emitted whenever a daily summary is upserted. Repeated
// syncs of the same day emit one event each; consumers see the latest totals.
type SummarySynced struct {
	SummaryID          string    `json:"summary_id"`
	UserID             string    `json:"user_id"`
	Date               time.Time `json:"date"`
	TotalActiveSeconds int       `json:"total_active_seconds"`
	ContextSwitchCount int       `json:"context_switch_count"`
	ActivityCount      int       `json:"activity_count"`
	SyncedAt           time.Time `json:"synced_at"`
}

// UserProvisioned marks the lazy creation of a user record on first sync.
type UserProvisioned struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
