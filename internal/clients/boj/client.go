// Package boj provides a client for the Bank of Japan's open-market operation
// publications: monthly xlsx releases and daily result/offer pages.
package boj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultReleaseBaseURL = "https://www.boj.or.jp/en/statistics/boj/fm/ope/m_release"
	defaultDailyBaseURL   = "https://www3.boj.or.jp/market/en/stat"

	// maxBodyBytes caps a single download; releases are well under 1MB
	maxBodyBytes = 16 << 20
)

// Config configures the client.
type Config struct {
	ReleaseBaseURL string
	DailyBaseURL   string
	Timeout        time.Duration
	// RatePerSecond limits requests across all fetch workers. Zero disables throttling.
	RatePerSecond float64
}

// Client fetches BOJ publications. It is safe for concurrent use; all
// requests share one rate limiter.
type Client struct {
	releaseBaseURL string
	dailyBaseURL   string
	httpClient     *http.Client
	limiter        *rate.Limiter
	cacheRepo      *clientdata.Repository
	log            zerolog.Logger
	today          func() civil.Date
}

// NewClient creates a new BOJ client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if cfg.ReleaseBaseURL == "" {
		cfg.ReleaseBaseURL = defaultReleaseBaseURL
	}
	if cfg.DailyBaseURL == "" {
		cfg.DailyBaseURL = defaultDailyBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Client{
		releaseBaseURL: cfg.ReleaseBaseURL,
		dailyBaseURL:   cfg.DailyBaseURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        limiter,
		cacheRepo:      cacheRepo,
		log:            log.With().Str("client", "boj").Logger(),
		today:          func() civil.Date { return domain.Today(time.Local) },
	}
}

// download is one cacheable GET.
type download struct {
	table string
	key   string
	url   string
	// covers is the publication date, used to pick the cache TTL
	covers civil.Date
}

// fetch returns the body for d, preferring a fresh cache entry and falling
// back to a stale one when the request itself fails. Transport failures are
// reported as domain.ErrResourceUnavailable when no stale copy exists.
// A 404 or other non-200 status yields domain.ErrResourceUnavailable.
func (c *Client) fetch(ctx context.Context, d download) ([]byte, error) {
	if body := c.fromCache(d, true); body != nil {
		c.log.Debug().Str("key", d.key).Msg("BOJ cache hit")
		return body, nil
	}

	body, err := c.get(ctx, d.url)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) || ctx.Err() != nil {
			return nil, err
		}
		if stale := c.fromCache(d, false); stale != nil {
			c.log.Warn().Err(err).Str("key", d.key).Msg("Request failed, using stale cached data")
			return stale, nil
		}
		return nil, err
	}

	c.toCache(d, body)
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable(ctx, err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "bojops/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(ctx, err, "failed to GET "+url)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("BOJ request")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &statusError{url: url, code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, unavailable(ctx, err, "failed to read "+url)
	}
	return body, nil
}

// statusError is a response other than 200 OK.
type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %v", e.url, e.code, domain.ErrResourceUnavailable)
}

func (e *statusError) Unwrap() error { return domain.ErrResourceUnavailable }

// unavailable marks a transport failure as ErrResourceUnavailable so the
// affected unit is skipped. Cancellation of ctx is returned as is.
func unavailable(ctx context.Context, err error, what string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %w", what, err, domain.ErrResourceUnavailable)
}

func (c *Client) fromCache(d download, freshOnly bool) []byte {
	if c.cacheRepo == nil {
		return nil
	}

	var (
		body []byte
		err  error
	)
	if freshOnly {
		body, err = c.cacheRepo.GetIfFresh(d.table, d.key)
	} else {
		body, err = c.cacheRepo.Get(d.table, d.key)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", d.key).Msg("Failed to read cache")
		return nil
	}
	return body
}

func (c *Client) toCache(d download, body []byte) {
	if c.cacheRepo == nil {
		return
	}
	ttl := clientdata.TTLFor(d.covers, c.today())
	if err := c.cacheRepo.Store(d.table, d.key, body, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", d.key).Msg("Failed to cache response")
	}
}
