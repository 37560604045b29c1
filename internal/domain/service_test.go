package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	lastUpsert *SyncDayInput
	result     SyncDayResult
	upsertErr  error
	summary    *DailySummary
}

func (m *mockRepo) UpsertDay(ctx context.Context, input SyncDayInput) (SyncDayResult, error) {
	m.lastUpsert = &input
	if m.upsertErr != nil {
		return SyncDayResult{}, m.upsertErr
	}
	return m.result, nil
}

func (m *mockRepo) GetSummary(ctx context.Context, userID string, date time.Time) (*DailySummary, error) {
	return m.summary, nil
}

func (m *mockRepo) ListLogs(ctx context.Context, summaryID string) ([]ActivityEvent, error) {
	return nil, nil
}

func TestSyncDayNormalizesDate(t *testing.T) {
	repo := &mockRepo{result: SyncDayResult{SummaryID: "sum-1"}}
	service := NewService(repo)

	input := SyncDayInput{
		UserID: "user-1",
		Summary: DailySummary{
			Date:               time.Date(2026, time.March, 2, 17, 42, 13, 0, time.UTC),
			TotalActiveSeconds: 3600,
		},
	}

	result, err := service.SyncDay(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "sum-1", result.SummaryID)

	require.NotNil(t, repo.lastUpsert)
	require.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), repo.lastUpsert.Summary.Date)
	require.Equal(t, "user-1", repo.lastUpsert.Summary.UserID)
}

func TestSyncDayRejectsMissingFields(t *testing.T) {
	repo := &mockRepo{}
	service := NewService(repo)

	_, err := service.SyncDay(context.Background(), SyncDayInput{
		Summary: DailySummary{Date: time.Now()},
	})
	require.Error(t, err)
	require.Nil(t, repo.lastUpsert, "no mutation on validation failure")

	_, err = service.SyncDay(context.Background(), SyncDayInput{UserID: "user-1"})
	require.Error(t, err)
	require.Nil(t, repo.lastUpsert)
}

func TestSyncDayWrapsRepositoryErrors(t *testing.T) {
	cause := errors.New("connection refused")
	service := NewService(&mockRepo{upsertErr: cause})

	_, err := service.SyncDay(context.Background(), SyncDayInput{
		UserID:  "user-1",
		Summary: DailySummary{Date: time.Now()},
	})
	require.ErrorIs(t, err, cause)
}

func TestGetSummaryNotFound(t *testing.T) {
	service := NewService(&mockRepo{})

	_, err := service.GetSummary(context.Background(), "user-1", time.Now())
	require.ErrorIs(t, err, ErrSummaryNotFound)
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, time.March, 3, 1, 30, 0, 0, loc) // 2026-03-02T20:30Z
	require.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), DayOf(in))
}

func TestCategoryTotalsSumAndAdd(t *testing.T) {
	var totals CategoryTotals
	totals.Add(CategoryBuilding, 100)
	totals.Add(CategoryCommunication, 50)
	totals.Add(Category("unknown"), 999)

	require.Equal(t, 150, totals.Sum())
	require.Equal(t, 100, totals.Building)
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		require.True(t, c.Valid())
	}
	require.False(t, Category("gaming").Valid())
}
