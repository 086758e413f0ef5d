package hospitalsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoCredentials = errors.New("SERP_API_KEY not configured")
	ErrAuthFailed    = errors.New("search API authentication failed")
	ErrNoResults     = errors.New("search returned no results")
)

type SearchConfig struct {
	APIKey             string
	BaseURL            string
	Engine             string
	Location           string
	ResultLimit        int
	RateLimitPerMinute int
	HTTPClient         *http.Client
}

// SerpClient runs one hospital query at a time against a SerpAPI-style
// endpoint and converts organic results into ranking candidates.
type SerpClient struct {
	cfg     SearchConfig
	limiter <-chan time.Time
}

func NewSerpClient(cfg SearchConfig) (*SerpClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SerpBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultSearchEngine
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultResultLimit
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	interval := time.Minute / time.Duration(cfg.RateLimitPerMinute)
	ticker := time.NewTicker(interval)
	return &SerpClient{cfg: cfg, limiter: ticker.C}, nil
}

type serpAPIResponse struct {
	Error          string          `json:"error"`
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Search executes a single query. Candidate positions are the 0-based rank
// within this query's result list. Listings missing a title or snippet are
// dropped, never fatal. An empty result list maps to ErrNoResults; a 401 or
// 403 maps to ErrAuthFailed so callers can stop querying.
func (c *SerpClient) Search(ctx context.Context, query string) ([]CandidateInstitution, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	resp, statusCode, err := c.executeWithRetry(ctx, query)
	if err != nil {
		if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status %d", ErrAuthFailed, statusCode)
		}
		return nil, err
	}

	results := resp.OrganicResults
	if len(results) > c.cfg.ResultLimit {
		results = results[:c.cfg.ResultLimit]
	}
	candidates := make([]CandidateInstitution, 0, len(results))
	for i, r := range results {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Snippet) == "" {
			log.Printf("hospital-search dropping malformed result query=%q position=%d", query, i)
			continue
		}
		candidates = append(candidates, CandidateInstitution{
			Name:        strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Snippet),
			Website:     r.Link,
			Origin:      OriginExternalSearch,
			Position:    i,
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoResults
	}
	return candidates, nil
}

func (c *SerpClient) waitRateLimit(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter:
		return nil
	}
}

func (c *SerpClient) executeWithRetry(ctx context.Context, query string) (serpAPIResponse, int, error) {
	var lastErr error
	statusCode := 0
	timeoutRetried := false
	for attempt := 1; attempt <= 4; attempt++ {
		resp, code, retryAfter, err := c.executeOnce(ctx, query)
		statusCode = code
		if err == nil {
			return resp, statusCode, nil
		}
		lastErr = err

		if code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden {
			return serpAPIResponse{}, statusCode, err
		}
		if code == http.StatusTooManyRequests {
			if attempt == 4 {
				break
			}
			sleep := retryAfter
			if sleep <= 0 {
				sleep = backoffDelay(attempt)
			}
			if err := sleepCtx(ctx, sleep); err != nil {
				return serpAPIResponse{}, statusCode, err
			}
			continue
		}
		if code >= 500 || isTimeoutError(err) {
			if isTimeoutError(err) {
				if timeoutRetried {
					break
				}
				timeoutRetried = true
			}
			if attempt == 4 {
				break
			}
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return serpAPIResponse{}, statusCode, err
			}
			continue
		}
		return serpAPIResponse{}, statusCode, err
	}
	return serpAPIResponse{}, statusCode, lastErr
}

func (c *SerpClient) executeOnce(ctx context.Context, query string) (serpAPIResponse, int, time.Duration, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", c.cfg.Engine)
	params.Set("num", strconv.Itoa(c.cfg.ResultLimit))
	params.Set("api_key", c.cfg.APIKey)
	if c.cfg.Location != "" {
		params.Set("location", c.cfg.Location)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return serpAPIResponse{}, 0, 0, err
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return serpAPIResponse{}, 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode == http.StatusTooManyRequests {
		return serpAPIResponse{}, res.StatusCode, retryAfter, fmt.Errorf("status code: %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return serpAPIResponse{}, res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return serpAPIResponse{}, res.StatusCode, retryAfter, err
	}
	if parsed.Error != "" {
		return serpAPIResponse{}, res.StatusCode, retryAfter, fmt.Errorf("serpapi error: %s", parsed.Error)
	}
	return parsed, res.StatusCode, retryAfter, nil
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
