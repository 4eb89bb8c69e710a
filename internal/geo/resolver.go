// Package geo resolves client IPs to a coarse location with a best-effort contract:
// every failure degrades to the Unknown triple and nothing is ever returned as an error.
package geo

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/keshsri/tinylinker/pkg/logger"
)

// UnknownValue fills every field that could not be resolved
const UnknownValue = "Unknown"

// DefaultTimeout bounds a single provider lookup
const DefaultTimeout = 2 * time.Second

// Location is a coarse geolocation
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// Unknown returns the fallback location
func Unknown() Location {
	return Location{Country: UnknownValue, Region: UnknownValue, City: UnknownValue}
}

// Provider looks up a public IP. Implementations may return errors freely;
// the Resolver absorbs them.
type Provider interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// privatePrefixes short-circuit without a provider call
var privatePrefixes = []string{"127.", "10.", "172.", "192.168.", "::1", "localhost"}

// Resolver wraps a Provider with the private-address short circuit and a timeout
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *logger.Logger
}

// NewResolver creates a resolver. A nil provider makes every lookup Unknown.
func NewResolver(provider Provider, timeout time.Duration, log *logger.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		logger:   log,
	}
}

// Resolve returns the location of ip, or Unknown for private addresses and failures
func (r *Resolver) Resolve(ctx context.Context, ip string) Location {
	if r.provider == nil || IsPrivate(ip) {
		return Unknown()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	loc, err := r.provider.Lookup(ctx, ip)
	if err != nil {
		r.logger.Warn("Geolocation lookup failed", "ip", ip, "error", err)
		return Unknown()
	}

	return normalize(loc)
}

// IsPrivate reports whether ip must never be sent to an external provider.
// Unparseable input counts as private.
func IsPrivate(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return true
	}

	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}

	return parsed.IsLoopback() ||
		parsed.IsPrivate() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsUnspecified()
}

func normalize(loc Location) Location {
	if loc.Country == "" {
		loc.Country = UnknownValue
	}
	if loc.Region == "" {
		loc.Region = UnknownValue
	}
	if loc.City == "" {
		loc.City = UnknownValue
	}
	return loc
}
