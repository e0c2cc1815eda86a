package geo

import (
	"errors"
	"fmt"
	"math"
)

// Mean Earth radius in meters, used for the spherical meters-to-degrees
// approximation. Good enough at the regional scales this tool targets;
// not geodesically exact at large sizes or near the poles.
const earthRadius = 6371000.0

// ErrInvalidRegion marks region specifications no tile range can be derived from.
var ErrInvalidRegion = errors.New("invalid region spec")

// BoundingBox is a geographic rectangle given by its southwest and northeast
// corners. A raw southwest longitude greater than the northeast longitude is
// interpreted as a box crossing the antimeridian.
type BoundingBox struct {
	SW Point
	NE Point
}

// TileRange is an inclusive rectangle of tile indices at a fixed zoom level.
type TileRange struct {
	Z    int
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Tiles enumerates every tile in the range, row by row.
func (r TileRange) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, Tile{Z: r.Z, X: x, Y: y})
		}
	}

	return tiles
}

// RegionFromCenter builds a square bounding box of the given side length in
// meters centered on a point.
func RegionFromCenter(center Point, sizeMeters float64) (BoundingBox, error) {
	if err := center.Validate(); err != nil {
		return BoundingBox{}, err
	}
	if math.IsNaN(sizeMeters) || sizeMeters <= 0 {
		return BoundingBox{}, fmt.Errorf("%w: size must be positive meters, got %v", ErrInvalidRegion, sizeMeters)
	}

	half := sizeMeters / 2
	dLat := half / (earthRadius * math.Pi / 180)
	dLon := half / (earthRadius * math.Cos(center.Lat*math.Pi/180) * math.Pi / 180)

	return BoundingBox{
		SW: Point{Lat: center.Lat - dLat, Lon: center.Lon - dLon},
		NE: Point{Lat: center.Lat + dLat, Lon: center.Lon + dLon},
	}, nil
}

// RegionFromCorners builds a bounding box from two corner points. Latitudes
// are normalized so the southwest corner holds the smaller one; longitudes are
// kept as given so antimeridian crossings stay detectable.
func RegionFromCorners(sw, ne Point) (BoundingBox, error) {
	if err := sw.Validate(); err != nil {
		return BoundingBox{}, err
	}
	if err := ne.Validate(); err != nil {
		return BoundingBox{}, err
	}

	latMin := math.Min(sw.Lat, ne.Lat)
	latMax := math.Max(sw.Lat, ne.Lat)

	return BoundingBox{
		SW: Point{Lat: latMin, Lon: sw.Lon},
		NE: Point{Lat: latMax, Lon: ne.Lon},
	}, nil
}

// TileRanges converts the box into inclusive tile ranges at the given zoom.
// A box crossing the antimeridian yields two ranges: the eastern part up to
// the last tile column and the western part from column zero. All other boxes
// yield exactly one range.
func (b BoundingBox) TileRanges(zoom int) ([]TileRange, error) {
	swLon := wrapLon(b.SW.Lon)
	neLon := wrapLon(b.NE.Lon)
	crosses := swLon > neLon

	// Increasing latitude decreases tile Y, so min/max are taken componentwise.
	swTile, err := ToTile(Point{Lat: b.SW.Lat, Lon: swLon}, zoom)
	if err != nil {
		return nil, err
	}
	neTile, err := ToTile(Point{Lat: b.NE.Lat, Lon: neLon}, zoom)
	if err != nil {
		return nil, err
	}

	minY := min(swTile.Y, neTile.Y)
	maxY := max(swTile.Y, neTile.Y)

	if !crosses {
		return []TileRange{{
			Z:    zoom,
			MinX: min(swTile.X, neTile.X),
			MinY: minY,
			MaxX: max(swTile.X, neTile.X),
			MaxY: maxY,
		}}, nil
	}

	lastX := (1 << zoom) - 1

	return []TileRange{
		{Z: zoom, MinX: swTile.X, MinY: minY, MaxX: lastX, MaxY: maxY},
		{Z: zoom, MinX: 0, MinY: minY, MaxX: neTile.X, MaxY: maxY},
	}, nil
}
