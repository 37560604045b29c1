// Package syncclient delivers flushed session batches to the sync API.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daypulse-dev/daypulse/internal/domain"
	"github.com/daypulse-dev/daypulse/internal/session"
)

// Client posts summary documents to the server. The protocol is idempotent on
// (user, date), so callers may blindly retry a failed Sync with the next
// flush.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a Client for the given API base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type syncRequest struct {
	UserID     string            `json:"userId"`
	Summary    summaryPayload    `json:"summary"`
	Activities []activityPayload `json:"activities,omitempty"`
}

type summaryPayload struct {
	Date               time.Time             `json:"date"`
	TotalActiveSeconds int                   `json:"totalActiveSeconds"`
	CategoryTotals     domain.CategoryTotals `json:"categoryTotals"`
	FocusWindow        *domain.FocusWindow   `json:"focusWindow,omitempty"`
	TopDomains         []domain.DomainTotal  `json:"topDomains,omitempty"`
	ContextSwitchCount int                   `json:"contextSwitchCount"`
}

type activityPayload struct {
	Domain          string    `json:"domain"`
	Category        string    `json:"category"`
	DurationSeconds int       `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

type syncResponse struct {
	Success        bool   `json:"success"`
	DailySummaryID string `json:"dailySummaryId"`
	Error          string `json:"error"`
}

// Sync submits one flushed batch for the given user and returns the daily
// summary id the server recorded it under.
func (c *Client) Sync(ctx context.Context, userID string, batch session.Batch) (string, error) {
	payload := syncRequest{
		UserID: userID,
		Summary: summaryPayload{
			Date:               batch.Summary.Date,
			TotalActiveSeconds: batch.Summary.TotalActiveSeconds,
			CategoryTotals:     batch.Summary.CategoryTotals,
			FocusWindow:        batch.Summary.FocusWindow,
			TopDomains:         batch.Summary.TopDomains,
			ContextSwitchCount: batch.Summary.ContextSwitchCount,
		},
	}
	for _, ev := range batch.Events {
		payload.Activities = append(payload.Activities, activityPayload{
			Domain:          ev.Domain,
			Category:        string(ev.Category),
			DurationSeconds: ev.DurationSeconds,
			Timestamp:       ev.OccurredAt,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sync", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded syncResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode sync response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !decoded.Success {
		if decoded.Error != "" {
			return "", fmt.Errorf("sync rejected (status %d): %s", resp.StatusCode, decoded.Error)
		}
		return "", fmt.Errorf("sync failed with status %d", resp.StatusCode)
	}

	return decoded.DailySummaryID, nil
}
