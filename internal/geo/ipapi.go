package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIPAPIURL is the ip-api.com JSON endpoint; the IP is appended as a path segment
const DefaultIPAPIURL = "https://ip-api.com/json"

// DefaultRequestsPerMinute matches the ip-api.com free tier
const DefaultRequestsPerMinute = 45

// ErrRateLimited is returned by Lookup when the request budget is spent
var ErrRateLimited = errors.New("geolocation request budget exhausted")

// ipAPIResponse is the subset of the ip-api.com payload we read
type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// IPAPIProvider queries an ip-api.com compatible HTTP endpoint
type IPAPIProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter // nil means unlimited
}

// NewIPAPIProvider creates a provider for baseURL. The request deadline comes from
// the caller's context, see Resolver.
func NewIPAPIProvider(baseURL string, client *http.Client) *IPAPIProvider {
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &IPAPIProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// WithRateLimit caps outgoing lookups at perMinute, allowing bursts of the same size.
// Lookups over budget fail fast with ErrRateLimited instead of waiting.
// A non-positive perMinute removes the cap.
func (p *IPAPIProvider) WithRateLimit(perMinute int) *IPAPIProvider {
	if perMinute <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return p
}

// Lookup implements Provider
func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (Location, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		return Location{}, ErrRateLimited
	}

	endpoint := p.baseURL + "/" + url.PathEscape(ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("build geolocation request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}

	if body.Status != "success" {
		return Location{}, fmt.Errorf("geolocation lookup unsuccessful: status=%q message=%q", body.Status, body.Message)
	}

	return Location{
		Country: body.Country,
		Region:  body.RegionName,
		City:    body.City,
	}, nil
}
