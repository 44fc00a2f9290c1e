package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Provider resolves server addresses to countries. A nil Provider resolves nothing.
type Provider struct {
	db *geoip2.Reader
}

// Open loads the MMDB file at path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close releases the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

// CountryCode returns the ISO country code (e.g. "US", "DE") of a server address
// given as "ip:port" or a bare ip. It returns an empty string when unknown.
func (p *Provider) CountryCode(address string) string {
	if p == nil || p.db == nil {
		return ""
	}

	host := address
	if h, _, err := net.SplitHostPort(address); err == nil {
		host = h
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}
