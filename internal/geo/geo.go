// Package geo resolves visitor addresses to coarse locations using an
// offline MaxMind database.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"albumd/internal/album"
)

const lang = "en"

// MaxMind implements album.Locator over a GeoLite2/GeoIP2 City database.
// The database is memory-mapped once when opened.
type MaxMind struct {
	db *geoip2.Reader
}

var _ album.Locator = (*MaxMind)(nil)

// Open opens the database at path.
func Open(path string) (*MaxMind, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database: %w", err)
	}
	return &MaxMind{db: db}, nil
}

// Lookup returns the location of ip. ok is false when the address cannot
// be parsed or is not in the database.
func (m *MaxMind) Lookup(ip string) (album.Location, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return album.Location{}, false
	}
	rec, err := m.db.City(parsed)
	if err != nil || rec == nil {
		return album.Location{}, false
	}

	loc := album.Location{
		City:    rec.City.Names[lang],
		Country: rec.Country.IsoCode,
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names[lang]
	}
	if loc == (album.Location{}) {
		return loc, false
	}
	return loc, true
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.db.Close()
}

// Nop knows no addresses. It stands in when no database is configured.
type Nop struct{}

var _ album.Locator = Nop{}

func (Nop) Lookup(string) (album.Location, bool) { return album.Location{}, false }

// New opens the database at path, or returns Nop when path is empty.
// The returned close function is always safe to call.
func New(path string) (album.Locator, func() error, error) {
	if path == "" {
		return Nop{}, func() error { return nil }, nil
	}
	m, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}
