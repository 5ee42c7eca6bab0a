// Package client is a Go client for the qosd status API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"evalgo.org/qosd/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("qosd API %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("qosd API %d: %s", e.StatusCode, e.Message)
}

// Query limits list results.
type Query struct {
	Limit  int
	Offset int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// Health is the /health response.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Records int    `json:"records"`
}

// System is the /api/v1/system response.
type System struct {
	System *models.System `json:"system"`
	Trust  string         `json:"trust,omitempty"`
}

// Statistics is the /api/v1/stats response.
type Statistics struct {
	Records map[models.Kind]int `json:"records"`
	Total   int                 `json:"total"`
	Path    string              `json:"path"`
}

// List is the envelope of every list endpoint.
type List[T any] struct {
	Count  int `json:"count"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Items  []T `json:"items"`
}

// ProfileSummary describes one profile in a profile listing.
type ProfileSummary struct {
	ID        models.Ref `json:"id"`
	Name      string     `json:"name"`
	HWDefault bool       `json:"hw_default"`
	Active    bool       `json:"active"`
	Queues    []int      `json:"queues"`
}

// ScheduleProfile is a scheduling profile with its queue entries.
type ScheduleProfile struct {
	Profile *models.Profile            `json:"profile"`
	Active  bool                       `json:"active"`
	Queues  map[int]*models.QueueEntry `json:"queues"`
}

// QueueProfile is a queue mapping profile with its entries.
type QueueProfile struct {
	Profile *models.Profile               `json:"profile"`
	Active  bool                          `json:"active"`
	Queues  map[int]*models.PriorityEntry `json:"queues"`
}

// IntegrityHealth is the /api/v1/integrity/health response.
type IntegrityHealth struct {
	TotalDocuments   int            `json:"total_documents"`
	IssueCount       int            `json:"issue_count"`
	IssuesByType     map[string]int `json:"issues_by_type"`
	IssuesBySeverity map[string]int `json:"issues_by_severity"`
	DatabaseSize     int64          `json:"database_size_bytes"`
	QoSReady         bool           `json:"qos_ready"`
	HealthScore      int            `json:"health_score"`
	Recommendations  []string       `json:"recommendations"`
}

// ScanRequest selects the integrity checks to run. All false runs every
// check.
type ScanRequest struct {
	ScanDuplicates bool          `json:"scan_duplicates"`
	ScanOrphans    bool          `json:"scan_orphans"`
	ScanReferences bool          `json:"scan_references"`
	ScanSchemas    bool          `json:"scan_schemas"`
	Kinds          []models.Kind `json:"kinds,omitempty"`
}

// ScanReport is the /api/v1/integrity/scan response. Issues are kept as raw
// JSON objects.
type ScanReport struct {
	ID               string                   `json:"id"`
	DocumentsScanned int                      `json:"documents_scanned"`
	IssuesFound      []map[string]interface{} `json:"issues_found"`
	Summary          struct {
		TotalIssues int            `json:"total_issues"`
		ByType      map[string]int `json:"by_type"`
		BySeverity  map[string]int `json:"by_severity"`
		HealthScore int            `json:"health_score"`
	} `json:"summary"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	return call[Health](ctx, c, http.MethodGet, "/health", nil, nil)
}

func (c *Client) System(ctx context.Context) (*System, error) {
	return call[System](ctx, c, http.MethodGet, "/api/v1/system", nil, nil)
}

func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	return call[Statistics](ctx, c, http.MethodGet, "/api/v1/stats", nil, nil)
}

func (c *Client) ScheduleProfiles(ctx context.Context) (*List[ProfileSummary], error) {
	return call[List[ProfileSummary]](ctx, c, http.MethodGet, "/api/v1/profiles/schedule", nil, nil)
}

func (c *Client) ScheduleProfile(ctx context.Context, name string) (*ScheduleProfile, error) {
	return call[ScheduleProfile](ctx, c, http.MethodGet, "/api/v1/profiles/schedule/"+url.PathEscape(name), nil, nil)
}

func (c *Client) QueueProfiles(ctx context.Context) (*List[ProfileSummary], error) {
	return call[List[ProfileSummary]](ctx, c, http.MethodGet, "/api/v1/profiles/queue", nil, nil)
}

func (c *Client) QueueProfile(ctx context.Context, name string) (*QueueProfile, error) {
	return call[QueueProfile](ctx, c, http.MethodGet, "/api/v1/profiles/queue/"+url.PathEscape(name), nil, nil)
}

func (c *Client) CosMap(ctx context.Context, q Query) (*List[models.CosMapEntry], error) {
	return call[List[models.CosMapEntry]](ctx, c, http.MethodGet, "/api/v1/maps/cos", q.values(), nil)
}

func (c *Client) DscpMap(ctx context.Context, q Query) (*List[models.DscpMapEntry], error) {
	return call[List[models.DscpMapEntry]](ctx, c, http.MethodGet, "/api/v1/maps/dscp", q.values(), nil)
}

func (c *Client) IntegrityHealth(ctx context.Context) (*IntegrityHealth, error) {
	return call[IntegrityHealth](ctx, c, http.MethodGet, "/api/v1/integrity/health", nil, nil)
}

func (c *Client) Scan(ctx context.Context, req ScanRequest) (*ScanReport, error) {
	return call[ScanReport](ctx, c, http.MethodPost, "/api/v1/integrity/scan", nil, req)
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body interface{}) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
