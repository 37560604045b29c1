package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSummaryNotFound is returned when no summary exists for a (user, date) key.
var ErrSummaryNotFound = errors.New("daily summary not found")

// SyncDayInput captures one summary-plus-activities document from the API layer.
type SyncDayInput struct {
	UserID     string
	Summary    DailySummary
	Activities []ActivityEvent
}

// SyncDayResult reports what the store did with a sync document.
type SyncDayResult struct {
	SummaryID   string
	UserCreated bool
}

// SummaryRepository captures persistence operations for the daily summary store.
//
// UpsertDay must execute as a single atomic unit: ensure the user exists,
// upsert the summary keyed by (user id, date), and replace the activity log
// when activities are present. Concurrent calls for the same key serialize;
// last committed wins.
type SummaryRepository interface {
	UpsertDay(ctx context.Context, input SyncDayInput) (SyncDayResult, error)
	GetSummary(ctx context.Context, userID string, date time.Time) (*DailySummary, error)
	ListLogs(ctx context.Context, summaryID string) ([]ActivityEvent, error)
}

// Service orchestrates sync workflows.
type Service struct {
	repo SummaryRepository
}

// NewService constructs a Service.
func NewService(repo SummaryRepository) *Service {
	return &Service{repo: repo}
}

// SyncDay normalizes the summary date and durably records the document.
// The operation is idempotent on (user id, date): identical re-submissions
// leave the store unchanged, and a different payload for the same day fully
// supersedes the prior one.
func (s *Service) SyncDay(ctx context.Context, input SyncDayInput) (SyncDayResult, error) {
	if input.UserID == "" {
		return SyncDayResult{}, errors.New("user id is required")
	}
	if input.Summary.Date.IsZero() {
		return SyncDayResult{}, errors.New("summary date is required")
	}

	input.Summary.Date = DayOf(input.Summary.Date)
	input.Summary.UserID = input.UserID

	result, err := s.repo.UpsertDay(ctx, input)
	if err != nil {
		return SyncDayResult{}, fmt.Errorf("upsert day: %w", err)
	}
	return result, nil
}

// GetSummary fetches the summary for a user and calendar day.
func (s *Service) GetSummary(ctx context.Context, userID string, date time.Time) (*DailySummary, error) {
	summary, err := s.repo.GetSummary(ctx, userID, DayOf(date))
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrSummaryNotFound
	}
	return summary, nil
}
