// Package archivematica is a minimal client for the parts of the
// Archivematica dashboard and Storage Service APIs this service needs:
// ingest status polling and AIP download.
package archivematica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnreachable wraps transport-level failures talking to Archivematica,
// as opposed to HTTP error responses from it.
var ErrUnreachable = errors.New("archivematica unreachable")

// StatusError is returned when Archivematica answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archivematica returned status %d", e.Code)
}

// Config holds connection settings for an Archivematica instance.
type Config struct {
	// DashboardURL is the base URL of the Archivematica dashboard API.
	DashboardURL string
	// StorageURL is the base URL of the Storage Service.
	StorageURL string
	Username   string
	APIKey     string
	Timeout    time.Duration
}

// IngestStatus is the dashboard's view of one ingest.
type IngestStatus struct {
	UUID         string `json:"uuid"`
	Status       string `json:"status"`
	Name         string `json:"name"`
	Microservice string `json:"microservice"`
	Directory    string `json:"directory"`
}

// Client talks to one Archivematica instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.DashboardURL = strings.TrimRight(cfg.DashboardURL, "/")
	cfg.StorageURL = strings.TrimRight(cfg.StorageURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a dashboard URL has been set.
func (c *Client) Configured() bool {
	return c.cfg.DashboardURL != ""
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.Username != "" && c.cfg.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("ApiKey %s:%s", c.cfg.Username, c.cfg.APIKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

// IngestStatus fetches the current ingest status for the given unit UUID.
// Non-200 responses are surfaced as *StatusError so callers can forward the
// remote status code.
func (c *Client) IngestStatus(ctx context.Context, uuid string) (*IngestStatus, error) {
	url := fmt.Sprintf("%s/api/ingest/status/%s/", c.cfg.DashboardURL, uuid)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var st IngestStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode ingest status: %w", err)
	}
	return &st, nil
}

// DownloadAIP requests the stored AIP for the given UUID from the Storage
// Service and returns the raw response for streaming. The caller owns the
// response body, including on non-200 statuses.
func (c *Client) DownloadAIP(ctx context.Context, uuid string) (*http.Response, error) {
	url := fmt.Sprintf("%s/api/v2/file/%s/download/", c.cfg.StorageURL, uuid)
	return c.get(ctx, url)
}
