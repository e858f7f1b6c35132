package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payment-sync-service/models"
)

// TransferRail is the slice of the rail's API the sync engine consumes:
// the paginated transfer-event log.
type TransferRail interface {
	SyncEvents(ctx context.Context, afterID int64, count int) (*models.EventPage, error)
}

// RailClient calls the transfer rail's REST API.
type RailClient struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

func NewRailClient(baseURL, clientID, secret string) *RailClient {
	return &RailClient{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type eventSyncRequest struct {
	AfterID int64 `json:"after_id"`
	Count   int   `json:"count"`
}

// SyncEvents fetches one page of transfer events with event ids strictly
// greater than afterID. A non-2xx response is an error; the caller treats
// it as transient and aborts the current pass.
func (c *RailClient) SyncEvents(ctx context.Context, afterID int64, count int) (*models.EventPage, error) {
	body, err := json.Marshal(eventSyncRequest{AfterID: afterID, Count: count})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer/event/sync", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Rail-Client-Id", c.clientID)
	req.Header.Set("Rail-Secret", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transfer event sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transfer event sync returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var page models.EventPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode event sync response: %w", err)
	}
	return &page, nil
}
