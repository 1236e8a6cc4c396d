package groundtruth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/domos-network/domosx/pkg/submission"
	"github.com/domos-network/domosx/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPClient is a Lookup backed by one or more reference-data endpoints,
// wrapped in a token-bucket and a per-endpoint circuit-breaker. The token
// bucket is the authoritative rate limit for Tier-3 verification; the worker
// pool above it only bounds concurrency.
type HTTPClient struct {
	endpoints []string
	client    *http.Client

	// token-bucket
	tokMu       sync.Mutex
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// OptsFromEnv builds Opts from GROUNDTRUTH_* env vars.
func OptsFromEnv() Opts {
	return Opts{
		Endpoints:       utils.EnvList("GROUNDTRUTH_ENDPOINTS"),
		Timeout:         utils.EnvDuration("GROUNDTRUTH_TIMEOUT", 10*time.Second),
		RPS:             utils.EnvInt("GROUNDTRUTH_RPS", 20),
		Burst:           utils.EnvInt("GROUNDTRUTH_BURST", 40),
		BreakerFailures: utils.EnvInt("GROUNDTRUTH_BREAKER_FAILURES", 3),
		BreakerCooldown: utils.EnvDuration("GROUNDTRUTH_BREAKER_COOLDOWN", 5*time.Second),
	}
}

// NewHTTPClient creates a new HTTPClient with the given options.
func NewHTTPClient(o Opts) *HTTPClient {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &HTTPClient{
		endpoints:        utils.Dedup(o.Endpoints),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill = time.Now()
	return c
}

// refill credits every whole interval elapsed since the last refill, capped
// at the burst size, so the bucket delivers the configured rate even after
// an idle stretch.
func (c *HTTPClient) refill(now time.Time) {
	intervals := int64(now.Sub(c.lastRefill) / c.refillEvery)
	if intervals <= 0 {
		return
	}
	c.tokens += intervals
	if c.tokens > c.maxTokens {
		c.tokens = c.maxTokens
	}
	c.lastRefill = c.lastRefill.Add(time.Duration(intervals) * c.refillEvery)
}

// acquire takes a token from the bucket, blocking until one is available.
func (c *HTTPClient) acquire() {
	for {
		c.tokMu.Lock()
		c.refill(time.Now())
		if c.tokens > 0 {
			c.tokens--
			c.tokMu.Unlock()
			return
		}
		c.tokMu.Unlock()
		time.Sleep(c.refillEvery / 2)
	}
}

// isOpen returns true if the endpoint's breaker is in the OPEN state.
func (c *HTTPClient) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

// noteFailure marks an endpoint as failed and opens the breaker past the threshold.
func (c *HTTPClient) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

// Fetch implements Lookup. It tries every configured endpoint once, skipping
// any whose breaker is open. Every failure mode except a hard 404 collapses
// to ErrUnavailable so Tier 3 can degrade instead of erroring.
func (c *HTTPClient) Fetch(ctx context.Context, externalID string) (*submission.Listing, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrUnavailable)
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}

		c.acquire()

		u := fmt.Sprintf("%s/v1/listings/%s", ep, url.PathEscape(externalID))
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if reqErr != nil {
			return nil, reqErr
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = utils.DrainAndClose(resp.Body)
			return nil, ErrNotFound
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			c.noteFailure(ep)
			_ = utils.DrainAndClose(resp.Body)
			continue
		case resp.StatusCode >= 300:
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}

		var listing submission.Listing
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			_ = utils.DrainAndClose(resp.Body)
			lastErr = err
			continue
		}
		if cerr := utils.DrainAndClose(resp.Body); cerr != nil {
			return nil, cerr
		}
		return &listing, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all breakers open")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, lastErr)
}
