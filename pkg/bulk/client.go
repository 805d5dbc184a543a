// Package bulk drives the job/batch lifecycle of the Salesforce Bulk API:
// job creation, chunked batch submission, status-cache-aware polling, and
// reassembly of chunked results into one dataset.
//
// A Client owns its job registry and status caches; operations are
// synchronous and sequential, but the shared structures are mutex-guarded
// so one Client may be used from multiple goroutines.
package bulk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sfbulk/pkg/logging"
)

const (
	defaultAPIVersion = "37.0"
	defaultBatchSize  = 5000

	sessionHeader  = "X-SFDC-Session"
	xmlContentType = "application/xml; charset=UTF-8"
	csvContentType = "text/csv; charset=UTF-8"
)

// Session is the opaque token and endpoint host handed over by the session
// provider. How it was obtained is not this package's concern.
type Session struct {
	ID   string
	Host string
}

// Config defines Bulk API client settings. PollTimeout and PollInterval,
// when set, replace the package defaults for wait loops invoked with zero
// values.
type Config struct {
	Session      Session
	APIVersion   string
	BatchSize    int
	PollTimeout  time.Duration
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *logging.Logger
}

// Client orchestrates jobs and batches against one Bulk API endpoint.
type Client struct {
	endpoint     string
	sessionID    string
	batchSize    int
	pollTimeout  time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	log          *logging.Logger

	registry    *jobRegistry
	jobStatus   *statusCache
	batchStatus *statusCache
}

// NewClient instantiates a Bulk API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Session.ID == "" || cfg.Session.Host == "" {
		return nil, fmt.Errorf("bulk: session id and host are required")
	}

	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Client{
		endpoint:     APIEndpoint(cfg.Session.Host, version),
		sessionID:    cfg.Session.ID,
		batchSize:    batchSize,
		pollTimeout:  cfg.PollTimeout,
		pollInterval: cfg.PollInterval,
		httpClient:   httpClient,
		log:          log,
		registry:     newJobRegistry(),
		jobStatus:    newStatusCache(),
		batchStatus:  newStatusCache(),
	}, nil
}

// APIEndpoint derives the async API root from the login host: the host is
// given an https scheme if it has none, ".salesforce.com" becomes
// "-api.salesforce.com", and the async service path is appended.
func APIEndpoint(host, version string) string {
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	host = strings.Replace(host, ".salesforce.com", "-api.salesforce.com", 1)
	return host + "/services/async/" + version
}

// Endpoint returns the derived API root URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Jobs returns the ids of every job created through this client, in
// creation order.
func (c *Client) Jobs() []string {
	return c.registry.jobs()
}

// Batches returns the job's batch ids in submission order.
func (c *Client) Batches(jobID string) ([]string, error) {
	return c.registry.batchList(jobID)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, "", nil)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, contentType, body)
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bulk: build request: %w", err)
	}

	if contentType == "" {
		contentType = xmlContentType
	}
	req.Header.Set(sessionHeader, c.sessionID)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bulk: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		c.log.Error("Bulk API HTTP error", "status", resp.StatusCode, "url", url)
		return nil, apiErr
	}
	return data, nil
}
