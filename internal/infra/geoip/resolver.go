// Package geoip labels local-store suggestions with a coarse region derived
// from the caller's address. It is a display hint only; real store lookup is
// out of scope.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// RegionResolver resolves a human-readable region hint from an IP address.
type RegionResolver interface {
	Region(ip string) (string, error)
}

// Resolver provides region lookups backed by a MaxMind GeoIP2 City database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the GeoIP database at the given path. When the path is empty, nil is returned.
func NewResolver(path string) (RegionResolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Region returns "City, CC" when the database knows the address, the bare
// country code when only that is known, and "" for unknown addresses.
func (r *Resolver) Region(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.City(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup city: %w", err)
	}
	if record == nil {
		return "", nil
	}
	city := record.City.Names["en"]
	country := record.Country.IsoCode
	switch {
	case city != "" && country != "":
		return city + ", " + country, nil
	case country != "":
		return country, nil
	default:
		return "", nil
	}
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
