// Package pricefeed reads the token's USD spot price from a CoinGecko-style
// simple price endpoint.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/islandcalc/islandcalc/internal/domain"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// DefaultTokenID is the CoinGecko id of the ISLAND token.
const DefaultTokenID = "island-token"

// Fetcher returns one fresh quote.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.PriceQuote, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL  string
	TokenID  string
	Timeout  time.Duration
	Interval time.Duration // minimum spacing between outbound calls
	Burst    int

	BreakerThreshold int // consecutive failures that open the circuit; 0 disables
	BreakerCooldown  time.Duration
}

// Client performs the HTTP GET against the price endpoint.
type Client struct {
	baseURL string
	tokenID string
	http    *http.Client
	limiter *rate.Limiter
	breaker *Breaker
}

// NewClient creates a price client. Zero fields fall back to defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenID == "" {
		cfg.TokenID = DefaultTokenID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		tokenID: cfg.TokenID,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
}

// TokenID returns the token this client quotes.
func (c *Client) TokenID() string { return c.tokenID }

// Breaker exposes the circuit guarding outbound calls.
func (c *Client) Breaker() *Breaker { return c.breaker }

// simplePrice is the response shape: {"<token-id>": {"usd": <number>}}.
type simplePrice map[string]struct {
	USD *float64 `json:"usd"`
}

// Fetch performs one request unless the circuit is open or the limiter
// refuses. Failures are returned as errors; callers decide whether they matter.
func (c *Client) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	if !c.breaker.Allow() {
		return domain.PriceQuote{}, domain.ErrPriceCircuitOpen
	}
	if !c.limiter.Allow() {
		c.breaker.Cancel()
		return domain.PriceQuote{}, domain.ErrPriceThrottled
	}

	q, err := c.fetch(ctx)
	if err != nil {
		c.breaker.Failure()
		return domain.PriceQuote{}, err
	}
	c.breaker.Success()
	return q, nil
}

func (c *Client) fetch(ctx context.Context) (domain.PriceQuote, error) {
	q := url.Values{}
	q.Set("ids", c.tokenID)
	q.Set("vs_currencies", "usd")
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PriceQuote{}, fmt.Errorf("fetch price: unexpected status %d", resp.StatusCode)
	}

	var body simplePrice
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("decode price: %w", err)
	}

	entry, ok := body[c.tokenID]
	if !ok || entry.USD == nil || *entry.USD <= 0 {
		return domain.PriceQuote{}, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, c.tokenID)
	}

	return domain.PriceQuote{
		TokenID:   c.tokenID,
		USD:       *entry.USD,
		Source:    c.baseURL,
		FetchedAt: time.Now().UTC(),
	}, nil
}
