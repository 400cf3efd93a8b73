// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cascade/internal/config"
	"github.com/tomtom215/cascade/internal/logging"
	"github.com/tomtom215/cascade/internal/metrics"
	"github.com/tomtom215/cascade/internal/risk"
)

// ErrUnavailable means the analytics service could not produce an answer:
// the request failed in transport, returned 5xx, or the breaker is open.
var ErrUnavailable = errors.New("upstream unavailable")

// maxErrorBodySize limits how much of an error response is read for reporting.
const maxErrorBodySize = 64 * 1024

// maxResponseSize bounds a decoded cascade page.
const maxResponseSize = 32 << 20

const cascadePath = "/analysis/cascade"

// readBodyForError reads at most maxErrorBodySize bytes of a response body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Query selects one page of cascade records.
type Query struct {
	RiskLevels []risk.Tier
	Flight     string
	Page       int
	PerPage    int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if len(q.RiskLevels) > 0 {
		levels := make([]string, 0, len(q.RiskLevels))
		for _, t := range q.RiskLevels {
			levels = append(levels, string(t))
		}
		v.Set("risk_level", strings.Join(levels, ","))
	}
	if q.Flight != "" {
		v.Set("flight", q.Flight)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// Response is one decoded cascade page. Meta is nil when the service sent none.
type Response struct {
	Meta    *risk.UpstreamMeta
	Records []risk.Record
}

// Fetcher is the read surface the engine needs from the analytics service.
type Fetcher interface {
	FetchCascade(ctx context.Context, q Query) (*Response, error)
	FetchAll(ctx context.Context) ([]risk.Record, error)
	Ping(ctx context.Context) error
}

// Client talks to the analytics service over HTTP.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	fetchPageSize  int
	maxFetchPages  int
}

// NewClient builds a client from the upstream configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryDelay,
		fetchPageSize:  cfg.FetchPageSize,
		maxFetchPages:  cfg.MaxFetchPages,
	}
}

// doRequestWithRateLimit performs a GET, waiting on the outbound limiter and
// retrying HTTP 429 with exponential backoff. Retry-After in seconds
// overrides the computed delay.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("%w: rate limit exceeded after %d retries (HTTP 429)", ErrUnavailable, c.maxRetries)
			break
		}

		metrics.UpstreamRetries.WithLabelValues(cascadePath).Inc()
		logging.Debug().Int("attempt", attempt+1).Dur("delay", delay).Msg("Upstream rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// FetchCascade retrieves one page of cascade records.
func (c *Client) FetchCascade(ctx context.Context, q Query) (resp *Response, err error) {
	start := time.Now()
	defer func() { metrics.RecordUpstreamRequest(cascadePath, time.Since(start), err) }()

	reqURL := c.baseURL + cascadePath
	if params := q.values().Encode(); params != "" {
		reqURL += "?" + params
	}

	httpResp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cascade: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body := readBodyForError(httpResp.Body)
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: cascade request failed with status %d: %s", ErrUnavailable, httpResp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("cascade request failed with status %d: %s", httpResp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cascade response: %v", ErrUnavailable, err)
	}
	resp, err = decodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cascade response: %w", err)
	}
	return resp, nil
}

// FetchAll pages through the unfiltered dataset. It stops at the first short
// page, when the reported total is reached, or after maxFetchPages pages.
func (c *Client) FetchAll(ctx context.Context) ([]risk.Record, error) {
	return fetchAll(ctx, c, c.fetchPageSize, c.maxFetchPages)
}

type pageFetcher interface {
	FetchCascade(ctx context.Context, q Query) (*Response, error)
}

func fetchAll(ctx context.Context, f pageFetcher, pageSize, maxPages int) ([]risk.Record, error) {
	var all []risk.Record
	for page := 1; page <= maxPages; page++ {
		resp, err := f.FetchCascade(ctx, Query{Page: page, PerPage: pageSize})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, resp.Records...)

		if len(resp.Records) < pageSize {
			return all, nil
		}
		if resp.Meta != nil && resp.Meta.TotalAggregated > 0 && len(all) >= resp.Meta.TotalAggregated {
			return all, nil
		}
	}
	logging.Warn().Int("max_pages", maxPages).Int("records", len(all)).Msg("Reference fetch stopped at page limit")
	return all, nil
}

// Ping checks that the analytics service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequestWithRateLimit(ctx, c.baseURL+"/health")
	if err != nil {
		return fmt.Errorf("failed to ping upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%w: ping failed with status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}
	return nil
}
