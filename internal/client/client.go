// Package client talks to the GeoTraceroute service over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"geotrace/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPError is returned when the service answers with a non-2xx status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d", e.StatusCode)
}

// Client implements models.Transport against a GeoTraceroute server
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client for the server at baseURL. The HTTP client has
// no overall timeout because the event stream is long-lived.
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type startBody struct {
	Target            string `json:"target"`
	MaxHops           int    `json:"max_hops"`
	IncludeReputation bool   `json:"include_reputation"`
}

// Start asks the service to trace req.Target and returns the event stream
func (c *Client) Start(ctx context.Context, req models.TraceRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	body, err := json.Marshal(startBody{
		Target:            req.Target,
		MaxHops:           req.MaxHops,
		IncludeReputation: req.IncludeReputation,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + "/api/traceroute/start?" + startQuery(req).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("starting traceroute",
		zap.String("target", req.Target),
		zap.Int("max_hops", req.MaxHops),
		zap.Bool("include_reputation", req.IncludeReputation),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("start traceroute: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return resp.Body, nil
}

func startQuery(req models.TraceRequest) url.Values {
	params := url.Values{}
	params.Set("target", req.Target)
	if req.APIKey != "" {
		params.Set("api_key", req.APIKey)
	}
	if loc := req.ClientLocation; loc != nil {
		params.Set("client_lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		params.Set("client_lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
		if loc.City != "" {
			params.Set("client_city", loc.City)
		}
		if loc.Country != "" {
			params.Set("client_country", loc.Country)
		}
	}
	return params
}

// Stop asks the service to stop the current traceroute
func (c *Client) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/traceroute/stop", nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stop traceroute: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return nil
}

// Health checks that the service reports itself healthy
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if status.Status != "healthy" {
		return fmt.Errorf("service status %q", status.Status)
	}
	return nil
}

var _ models.Transport = (*Client)(nil)
