// Package wordstat is the gateway to the external query-statistics API. It
// is the single place outbound requests go through, and it enforces the
// API's quota discipline locally: a per-second dispatch budget via a token
// bucket, response caching with a fixed TTL, and single-flight deduplication
// of identical concurrent requests.
//
// The per-day budget is advisory only. The wrapped API reports its own
// quota-remaining figure in every response; the client surfaces the last
// seen value and warns when it runs low, but never blocks on it.
package wordstat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config controls one client instance. Zero values fall back to defaults.
type Config struct {
	BaseURL           string
	Token             string
	RequestsPerSecond int
	RequestsPerDay    int // advisory, not enforced locally
	CacheTTL          time.Duration
	Timeout           time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

const (
	defaultRequestsPerSecond = 5
	defaultCacheTTL          = 30 * time.Minute
	defaultTimeout           = 30 * time.Second
)

// Response is a successful API reply. Data is the raw response body;
// QuotaRemaining is the API's own accounting figure, -1 when absent.
type Response struct {
	Endpoint       string          `json:"endpoint"`
	Data           json.RawMessage `json:"data"`
	QuotaRemaining int             `json:"quotaRemaining"`
}

// Client is safe for concurrent use. All shared state (cache, limiter,
// quota figure) lives behind the struct; there are no package globals.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	cache      *responseCache

	mu             sync.Mutex
	quotaRemaining int
}

func NewClient(cfg Config) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:            cfg,
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		cache:          newResponseCache(cfg.CacheTTL),
		quotaRemaining: -1,
	}
}

// Call posts payload to the given endpoint. A fresh cached response short-
// circuits without any network activity; identical concurrent calls share
// one in-flight request. Dispatch waits on the per-second budget before the
// request goes out.
func (c *Client) Call(ctx context.Context, endpoint string, payload any) (*Response, error) {
	key, err := cacheKey(endpoint, payload)
	if err != nil {
		return nil, err
	}

	if resp, ok := c.cache.get(key); ok {
		log.Debugf("Cache hit for %s", endpoint)
		return resp, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have landed the result between our cache
		// check and joining the flight group.
		if resp, ok := c.cache.get(key); ok {
			return resp, nil
		}
		return c.fetch(ctx, endpoint, key, payload)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debugf("Deduplicated in-flight request for %s", endpoint)
	}
	return v.(*Response), nil
}

// fetch performs the actual network call and caches the parsed result.
func (c *Client) fetch(ctx context.Context, endpoint, key string, payload any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := classifyError(httpResp.StatusCode, httpResp.Header, body)
		log.Warnf("API call %s failed: %v", endpoint, apiErr)
		return nil, apiErr
	}

	resp := &Response{
		Endpoint:       endpoint,
		Data:           json.RawMessage(body),
		QuotaRemaining: extractQuota(body),
	}
	c.noteQuota(resp.QuotaRemaining)
	c.cache.set(key, resp)
	return resp, nil
}

// QuotaRemaining reports the last quota figure the API sent, or -1 before
// the first successful call.
func (c *Client) QuotaRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotaRemaining
}

func (c *Client) noteQuota(remaining int) {
	if remaining < 0 {
		return
	}
	c.mu.Lock()
	c.quotaRemaining = remaining
	c.mu.Unlock()

	if c.cfg.RequestsPerDay > 0 && remaining < c.cfg.RequestsPerDay/10 {
		log.Warnf("Daily API quota running low: %d calls remaining", remaining)
	}
}

// quotaEnvelope picks the quota-remaining field out of any response body.
type quotaEnvelope struct {
	QuotaRemaining *int `json:"quota_remaining"`
}

func extractQuota(body []byte) int {
	var env quotaEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.QuotaRemaining == nil {
		return -1
	}
	return *env.QuotaRemaining
}

// cacheKey builds the canonical (endpoint, payload) key. encoding/json
// sorts map keys, so equal payloads serialize identically regardless of
// map iteration order.
func cacheKey(endpoint string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializing payload for cache key: %w", err)
	}
	return endpoint + "\n" + string(data), nil
}
