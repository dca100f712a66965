package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// originView mirrors one entry of GET /v1/origins.
type originView struct {
	Origin              string  `json:"origin"`
	TotalRequests       uint64  `json:"total_requests"`
	TotalBlocked        uint64  `json:"total_blocked"`
	TotalRateLimited    uint64  `json:"total_rate_limited"`
	TotalOtherErrors    uint64  `json:"total_other_errors"`
	SuccessRate         float64 `json:"success_rate"`
	CurrentDelay        int64   `json:"current_delay"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	BreakerState        string  `json:"breaker_state"`
}

type reportView struct {
	Origins       []originView `json:"origins"`
	TotalOrigins  int          `json:"total_origins"`
	TotalRequests uint64       `json:"total_requests"`
	SuccessRate   float64      `json:"success_rate"`
	OpenOrigins   int          `json:"open_origins"`
}

type alertView struct {
	Origin            string  `json:"origin"`
	State             string  `json:"state"`
	SuccessRate       float64 `json:"success_rate"`
	TotalRequests     uint64  `json:"total_requests"`
	RetryAfterSeconds float64 `json:"retry_after_seconds"`
}

type alertsView struct {
	Alerts []alertView `json:"alerts"`
}

type resetView struct {
	Origin string `json:"origin"`
	State  string `json:"state"`
}

// apiError is the kratos error body returned on non-2xx responses.
type apiError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("scoutbot returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("scoutbot returned %d %s: %s", e.Code, e.Reason, e.Message)
}

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string, timeout time.Duration) *apiClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &apiClient{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) Origins(ctx context.Context) (*reportView, error) {
	var out reportView
	if err := c.doJSON(ctx, http.MethodGet, "/v1/origins", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) BlockStats(ctx context.Context, top int) (string, error) {
	path := "/v1/blockstats"
	if top > 0 {
		path += "?top=" + strconv.Itoa(top)
	}
	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *apiClient) Alerts(ctx context.Context) ([]alertView, error) {
	var out alertsView
	if err := c.doJSON(ctx, http.MethodGet, "/v1/alerts", &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *apiClient) Reset(ctx context.Context, origin string) (*resetView, error) {
	var out resetView
	path := "/v1/origins/" + url.PathEscape(origin) + "/reset"
	if err := c.doJSON(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, out interface{}) error {
	body, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *apiClient) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Code: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		apiErr.Code = resp.StatusCode
		return nil, apiErr
	}
	return body, nil
}
