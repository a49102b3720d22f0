// Package directory reads feeds, sharing systems and routes from the transit directory API
package directory

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUA        = "bizstats-warehouse"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	defaultRPS       = 5.0
	defaultBurst     = 5
	maxBackoff       = 30 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// client side pacing
	RatePerSec float64
	Burst      int
}

// Client is a small directory REST client with pacing, retries and ETag support
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewClient creates a Client, BaseURL is required
func NewClient(o Options) (*Client, error) {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		return nil, perr.WithField(perr.Configurationf("directory base url is required"), "CORE_DIRECTORY_BASE_URL")
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = defaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		limiter: rate.NewLimiter(rate.Limit(o.RatePerSec), o.Burst),
		log:     *logger.Named("directory"),
		now:     time.Now,
		sleep:   sleepCtx,
	}, nil
}

// Do issues a GET with auth, etag, pacing and retries
// the caller owns the body of a 200 or 304 response
func (c *Client) Do(ctx context.Context, path, etagIn string) (*http.Response, error) {
	url := c.opts.BaseURL + path
	attempts := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "directory request %s", path)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if etagIn != "" {
			req.Header.Set("If-None-Match", etagIn)
		}
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "directory %s failed", path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("directory transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			attempts++
			continue
		}

		c.log.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("directory http response")

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNotModified:
			return resp, nil
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "directory %s rate limited", path)
			}
			c.log.Warn().Dur("sleep", wait).Msg("directory rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			attempts++
			continue
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUpstream, "directory %s status %d", path, resp.StatusCode)
			}
			back := c.backoff(attempts)
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Int("attempt", attempts).Msg("directory transient error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			attempts++
			continue
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			code := perr.ErrorCodeUpstream
			if resp.StatusCode == http.StatusNotFound {
				code = perr.ErrorCodeNotFound
			}
			return nil, perr.Newf(code, "directory %s unexpected status %d body %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}
