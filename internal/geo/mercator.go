// Package geo handles geographic coordinate conversions and tile addressing.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxLatitude is the Mercator projection limit; latitudes beyond it are clamped.
const MaxLatitude = 85.05112878

// Zoom levels supported by the remote tile service.
const (
	MinZoom = 1
	MaxZoom = 23
)

const tileSize = 256

// ErrInvalidCoordinate marks coordinates or zoom levels no tile can be derived from.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a geographic position in signed degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ParsePoint parses a "lat,lon" string into a Point.
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("%w: expected 'latitude,longitude', got %q", ErrInvalidCoordinate, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad latitude %q", ErrInvalidCoordinate, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad longitude %q", ErrInvalidCoordinate, parts[1])
	}

	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}

	return p, nil
}

// Validate rejects coordinates that cannot be mapped to a tile even after
// clamping and wrapping.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, p.Lon)
	}

	return nil
}

// Tile addresses one map tile under the quadtree tiling scheme.
type Tile struct {
	Z, X, Y int
}

// Quadkey renders the tile address as a Bing-style quadkey string.
func (t Tile) Quadkey() string {
	var b strings.Builder
	b.Grow(t.Z)

	for i := t.Z; i > 0; i-- {
		mask := 1 << (i - 1)
		digit := byte('0')
		if t.X&mask != 0 {
			digit++
		}
		if t.Y&mask != 0 {
			digit += 2
		}
		b.WriteByte(digit)
	}

	return b.String()
}

// ToTile converts a geographic point to the tile containing it at the given
// zoom level. Latitude is clamped to the Mercator range and longitude wrapped
// into [-180, 180) before projection; a point exactly on a tile boundary
// belongs to the lower/left tile (floor semantics).
func ToTile(p Point, zoom int) (Tile, error) {
	if err := ValidateZoom(zoom); err != nil {
		return Tile{}, err
	}
	if err := p.Validate(); err != nil {
		return Tile{}, err
	}

	lat := clampLat(p.Lat)
	lon := wrapLon(p.Lon)

	mapSize := float64(tileSize) * float64(int64(1)<<zoom)
	sinLat := math.Sin(lat * math.Pi / 180)

	px := (lon + 180) / 360 * mapSize
	py := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * mapSize

	return Tile{
		Z: zoom,
		X: clampIndex(int(math.Floor(px/tileSize)), zoom),
		Y: clampIndex(int(math.Floor(py/tileSize)), zoom),
	}, nil
}

// ValidateZoom checks the zoom level against the supported range.
func ValidateZoom(zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return fmt.Errorf("%w: zoom %d outside [%d, %d]", ErrInvalidCoordinate, zoom, MinZoom, MaxZoom)
	}

	return nil
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}

// wrapLon wraps a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	l := math.Mod(lon, 360)
	if l >= 180 {
		l -= 360
	}
	if l < -180 {
		l += 360
	}

	return l
}

func clampIndex(i, zoom int) int {
	limit := (1 << zoom) - 1
	if i < 0 {
		return 0
	}
	if i > limit {
		return limit
	}

	return i
}
