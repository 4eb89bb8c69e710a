package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// cityReader is the part of *geoip2.Reader the provider uses
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// MaxMindProvider resolves IPs against a local GeoLite2/GeoIP2 City database
type MaxMindProvider struct {
	reader cityReader
}

// OpenMaxMind opens the database at path
func OpenMaxMind(path string) (*MaxMindProvider, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &MaxMindProvider{reader: reader}, nil
}

// Lookup implements Provider
func (p *MaxMindProvider) Lookup(ctx context.Context, ip string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, fmt.Errorf("invalid ip %q", ip)
	}

	record, err := p.reader.City(parsed)
	if err != nil {
		return Location{}, fmt.Errorf("geoip lookup: %w", err)
	}

	var loc Location
	if name, ok := record.Country.Names["en"]; ok {
		loc.Country = name
	} else {
		loc.Country = record.Country.IsoCode
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	loc.City = record.City.Names["en"]

	return loc, nil
}

// Close releases the database file
func (p *MaxMindProvider) Close() error {
	return p.reader.Close()
}
