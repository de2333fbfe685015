// Package client implements the HTTP backend collaborator for the
// query builder: the primary query endpoint and the column schema
// endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seastack/discover/internal/discover"
	"github.com/seastack/discover/internal/errors"
	"github.com/seastack/discover/internal/retry"
)

// Config holds client construction parameters.
type Config struct {
	// BaseURL is the API root, e.g. https://discover.example.com.
	BaseURL string
	// Org is the organization slug addressed by all requests.
	Org string
	// Token is an optional bearer token.
	Token string
	// Timeout bounds each HTTP attempt. Zero means 30s.
	Timeout time.Duration
	// Retry tunes transient failure handling. A zero MaxRetries means
	// a single attempt.
	Retry retry.Config
}

// Client talks to the discover query backend over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	org     string
	token   string
	retry   retry.Config
	log     zerolog.Logger
}

// New validates cfg and builds a client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Org == "" {
		return nil, fmt.Errorf("organization slug is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rc := cfg.Retry
	if rc.MaxRetries == 0 {
		rc.MaxRetries = 1
		rc.InitialBackoff = time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(base.String(), "/"),
		org:     cfg.Org,
		token:   cfg.Token,
		retry:   rc,
		log:     log.With().Str("component", "client").Logger(),
	}, nil
}

// apiError is a backend failure carrying the human-readable detail
// message from the response body.
type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string {
	if e.detail != "" {
		return e.detail
	}
	return fmt.Sprintf("query failed with status %d", e.status)
}

// transient reports whether an error is worth retrying: network level
// failures and 5xx responses. 4xx responses are the caller's fault and
// retried never.
func transient(err error) bool {
	var apiErr *apiError
	if stderrors.As(err, &apiErr) {
		return apiErr.status >= 500
	}
	return true
}

// Fetch executes a wire query against the backend and returns its
// result payload. On failure the returned error's message is the
// backend's detail text when available.
func (c *Client) Fetch(ctx context.Context, q discover.WireQuery) (discover.ResultPayload, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return discover.ResultPayload{}, fmt.Errorf("marshal query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/0/organizations/%s/discover/query/", c.baseURL, c.org)

	var payload discover.ResultPayload
	err = retry.Do(ctx, c.retry, func() error {
		return c.post(ctx, endpoint, body, &payload)
	}, transient)
	if err != nil {
		// Surface the backend's detail text directly; the retry wrapper
		// prefix is noise in a user-facing message.
		var apiErr *apiError
		if stderrors.As(err, &apiErr) {
			return discover.ResultPayload{}, apiErr
		}
		return discover.ResultPayload{}, err
	}

	c.log.Debug().Int("rows", len(payload.Data)).Msg("query completed")
	return payload, nil
}

// Columns fetches the queryable column schema for the organization's
// data source.
func (c *Client) Columns(ctx context.Context) ([]discover.Column, error) {
	endpoint := fmt.Sprintf("%s/api/0/organizations/%s/discover/columns/", c.baseURL, c.org)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build schema request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	defer errors.DeferClose(c.log, resp.Body, "close schema response body")

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}
	var columns []discover.Column
	if err := json.NewDecoder(resp.Body).Decode(&columns); err != nil {
		return nil, fmt.Errorf("decode schema response: %w", err)
	}
	return columns, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, out *discover.ResultPayload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	defer errors.DeferClose(c.log, resp.Body, "close query response body")

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode query response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readAPIError extracts the backend's {"detail": "..."} message from a
// non-200 response.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &body)
	return &apiError{status: resp.StatusCode, detail: body.Detail}
}
