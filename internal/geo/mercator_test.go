package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTileOrigin(t *testing.T) {
	tile, err := ToTile(Point{Lat: 0, Lon: 0}, 18)
	require.NoError(t, err)

	assert.Equal(t, Tile{Z: 18, X: 131072, Y: 131072}, tile)
}

func TestToTileDeterministic(t *testing.T) {
	p := Point{Lat: 47.6205, Lon: -122.3493}

	first, err := ToTile(p, 18)
	require.NoError(t, err)
	second, err := ToTile(p, 18)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestToTileClampsLatitude(t *testing.T) {
	north, err := ToTile(Point{Lat: 89.9, Lon: 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, north.Y)

	south, err := ToTile(Point{Lat: -89.9, Lon: 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, (1<<5)-1, south.Y)
}

func TestToTileWrapsLongitude(t *testing.T) {
	wrapped, err := ToTile(Point{Lat: 0, Lon: 190}, 4)
	require.NoError(t, err)
	direct, err := ToTile(Point{Lat: 0, Lon: -170}, 4)
	require.NoError(t, err)

	assert.Equal(t, direct, wrapped)

	// 180 wraps to -180, the first tile column.
	edge, err := ToTile(Point{Lat: 0, Lon: 180}, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, edge.X)
}

func TestToTileBoundaryFloor(t *testing.T) {
	// At zoom 3 each tile spans 45 degrees; -135 sits exactly on the
	// boundary between columns 0 and 1 and must floor into column 1.
	tile, err := ToTile(Point{Lat: 0, Lon: -135}, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, tile.X)
}

func TestToTileInvalidInput(t *testing.T) {
	_, err := ToTile(Point{Lat: math.NaN(), Lon: 0}, 10)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ToTile(Point{Lat: 0, Lon: math.Inf(1)}, 10)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ToTile(Point{Lat: 0, Lon: 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ToTile(Point{Lat: 0, Lon: 0}, MaxZoom+1)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestQuadkey(t *testing.T) {
	// Known value from the Bing tile system documentation.
	assert.Equal(t, "213", Tile{Z: 3, X: 3, Y: 5}.Quadkey())
	assert.Equal(t, "0", Tile{Z: 1, X: 0, Y: 0}.Quadkey())
	assert.Len(t, Tile{Z: 18, X: 131072, Y: 131072}.Quadkey(), 18)
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("47.6205, -122.3493")
	require.NoError(t, err)
	assert.InDelta(t, 47.6205, p.Lat, 1e-9)
	assert.InDelta(t, -122.3493, p.Lon, 1e-9)

	_, err = ParsePoint("47.6205")
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ParsePoint("north,west")
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = ParsePoint("1,2,3")
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
