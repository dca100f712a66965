// Package fetch performs governed HTTP GETs against external origins.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 10 << 20

// ProviderSet is fetch providers.
var ProviderSet = wire.NewSet(NewSessionManager, NewClient)

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError reports a non-2xx/3xx answer.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// ClassifyStatus maps an HTTP status to the outcome it means for the origin's health.
// 4xx answers other than 403 and 429 are the target's fault, not the origin refusing
// us, so they count as successes that still carry an error.
func ClassifyStatus(url string, code int) (model.Outcome, error) {
	switch {
	case code == http.StatusForbidden:
		return model.OutcomeBlocked, &StatusError{URL: url, StatusCode: code}
	case code == http.StatusTooManyRequests:
		return model.OutcomeRateLimited, &StatusError{URL: url, StatusCode: code}
	case code >= 500:
		return model.OutcomeOtherError, &StatusError{URL: url, StatusCode: code}
	case code >= 400:
		return model.OutcomeSuccess, &StatusError{URL: url, StatusCode: code}
	default:
		return model.OutcomeSuccess, nil
	}
}

// Client issues GET requests through the request governor.
type Client struct {
	governor *biz.RequestGovernor
	sessions *SessionManager
	agents   *UserAgentPool
	logger   *zlog.LogHelper
}

// NewClient creates a governed HTTP client.
func NewClient(c *conf.Fetch, governor *biz.RequestGovernor, sessions *SessionManager, logger log.Logger) *Client {
	var agents []string
	if c != nil {
		agents = c.UserAgents
	}
	return &Client{
		governor: governor,
		sessions: sessions,
		agents:   NewUserAgentPool(agents),
		logger:   zlog.NewLogHelper(logger),
	}
}

// Get fetches rawURL. Governor decisions (*biz.CircuitOpenError, biz.ErrInvalidURL)
// come back unchanged; failed requests come back as *biz.OriginError wrapping the
// transport error or a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return biz.Execute(ctx, c.governor, rawURL, func(ctx context.Context) (*Response, model.Outcome, error) {
		return c.do(ctx, zlog.GetRequestContext(ctx).Origin, rawURL)
	})
}

func (c *Client) do(ctx context.Context, key, rawURL string) (*Response, model.Outcome, error) {
	client, err := c.sessions.Client(key)
	if err != nil {
		return nil, model.OutcomeOtherError, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.OutcomeOtherError, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.agents.ForOrigin(key))
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Fetch(ctx, http.MethodGet, rawURL, 0, time.Since(start).Milliseconds(), "error", err)
		return nil, model.OutcomeOtherError, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.logger.Fetch(ctx, http.MethodGet, rawURL, resp.StatusCode, time.Since(start).Milliseconds())
	if err != nil {
		return nil, model.OutcomeOtherError, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	outcome, statusErr := ClassifyStatus(rawURL, resp.StatusCode)
	if outcome == model.OutcomeBlocked || outcome == model.OutcomeRateLimited {
		c.logger.RateLimit("origin refused request",
			"origin", key,
			"status", resp.StatusCode,
			"outcome", outcome.String())
	}
	return out, outcome, statusErr
}
