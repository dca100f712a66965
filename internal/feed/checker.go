// Package feed checks subscribed feeds for reachability through the governed fetcher.
package feed

import (
	"context"
	"errors"
	"time"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/conf"
	"ScoutBot/internal/fetch"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// ProviderSet is feed providers.
var ProviderSet = wire.NewSet(
	NewChecker,
	wire.Bind(new(Fetcher), new(*fetch.Client)),
)

// Fetcher performs one governed GET.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Status is the result of checking one feed.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped" // origin short-circuited, try again next cycle
	StatusInvalid Status = "invalid"
	StatusFailed  Status = "failed"
)

// Result describes one feed check.
type Result struct {
	URL        string
	Status     Status
	StatusCode int
	Bytes      int
	RetryAfter time.Duration
	Err        error
}

// Summary counts results by status.
type Summary struct {
	Total   int
	OK      int
	Skipped int
	Invalid int
	Failed  int
}

// Checker fetches a set of feeds with bounded parallelism.
type Checker struct {
	fetcher     Fetcher
	urls        []string
	concurrency int
	logger      *zlog.LogHelper
}

// NewChecker creates a checker for the configured feeds.
func NewChecker(c *conf.Feeds, fetcher Fetcher, logger log.Logger) *Checker {
	ch := &Checker{
		fetcher:     fetcher,
		concurrency: defaultConcurrency,
		logger:      zlog.NewLogHelper(logger),
	}
	if c != nil {
		ch.urls = c.URLs
		if c.Concurrency > 0 {
			ch.concurrency = int(c.Concurrency)
		}
	}
	return ch
}

// URLs returns the configured feed list.
func (c *Checker) URLs() []string {
	return c.urls
}

// Run checks every configured feed once.
func (c *Checker) Run(ctx context.Context) ([]Result, Summary) {
	return c.CheckAll(ctx, c.urls)
}

// CheckAll fetches every url. A short-circuited origin is skipped for this cycle,
// not reported as a failure. Results keep the order of urls.
func (c *Checker) CheckAll(ctx context.Context, urls []string) ([]Result, Summary) {
	ctx = zlog.WithRequestContext(ctx, zlog.GenerateRequestID(), "feed")
	start := time.Now()

	results := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, u := range urls {
		i, u := i, u
		if gctx.Err() != nil {
			results[i] = Result{URL: u, Status: StatusFailed, Err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			results[i] = c.check(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(results)
	c.logger.Feed("feed check finished",
		"total", summary.Total,
		"ok", summary.OK,
		"skipped", summary.Skipped,
		"invalid", summary.Invalid,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	return results, summary
}

func (c *Checker) check(ctx context.Context, url string) Result {
	res := Result{URL: url}

	resp, err := c.fetcher.Get(ctx, url)
	if resp != nil {
		res.StatusCode = resp.StatusCode
		res.Bytes = len(resp.Body)
	}

	var coe *biz.CircuitOpenError
	var se *fetch.StatusError
	switch {
	case err == nil:
		res.Status = StatusOK
	case errors.As(err, &coe):
		res.Status = StatusSkipped
		res.RetryAfter = coe.RetryAfter
		c.logger.Debugw("msg", "feed skipped, origin short-circuited",
			"url", url,
			"retry_after", coe.RetryAfter)
	case errors.Is(err, biz.ErrInvalidURL):
		res.Status = StatusInvalid
		res.Err = err
		c.logger.Warnw("msg", "invalid feed url", "url", url, "error", err)
	default:
		res.Status = StatusFailed
		res.Err = err
		if errors.As(err, &se) {
			res.StatusCode = se.StatusCode
		}
		c.logger.Warnw("msg", "feed check failed", "url", url, "error", err)
	}
	return res
}

func summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusSkipped:
			s.Skipped++
		case StatusInvalid:
			s.Invalid++
		default:
			s.Failed++
		}
	}
	return s
}
