package shard

import (
	"fmt"
	"testing"

	"github.com/maprover/glbtiles/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridRejectsInvalidFactors(t *testing.T) {
	for _, split := range []int{0, -1, -9, 2, 3, 5, 8, 12} {
		t.Run(fmt.Sprintf("split_%d", split), func(t *testing.T) {
			_, err := NewGrid(split)
			assert.ErrorIs(t, err, ErrInvalidSplit)
		})
	}
}

func TestNewGridAcceptsPerfectSquares(t *testing.T) {
	for split, size := range map[int]int{1: 1, 4: 2, 9: 3, 16: 4, 25: 5} {
		grid, err := NewGrid(split)
		require.NoError(t, err)
		assert.Equal(t, size, grid.Size())
	}
}

func TestSubdirFlatLayout(t *testing.T) {
	grid, err := NewGrid(1)
	require.NoError(t, err)

	assert.Equal(t, "", grid.Subdir(geo.Tile{Z: 18, X: 1234, Y: 5678}))
}

func TestSubdirNaming(t *testing.T) {
	grid, err := NewGrid(9)
	require.NoError(t, err)

	assert.Equal(t, "00_01", grid.Subdir(geo.Tile{Z: 18, X: 3, Y: 4}))
	assert.Equal(t, "02_00", grid.Subdir(geo.Tile{Z: 18, X: 5, Y: 9}))
}

func TestSubdirStable(t *testing.T) {
	grid, err := NewGrid(16)
	require.NoError(t, err)

	tile := geo.Tile{Z: 18, X: 43210, Y: 98765}
	assert.Equal(t, grid.Subdir(tile), grid.Subdir(tile))
}

func TestSubdirDistributionBlock(t *testing.T) {
	// 16 tiles evenly spread over a 4x4 block with split 4 must land
	// exactly 4 per subdirectory.
	grid, err := NewGrid(4)
	require.NoError(t, err)

	counts := map[string]int{}
	for x := range 4 {
		for y := range 4 {
			counts[grid.Subdir(geo.Tile{Z: 18, X: x, Y: y})]++
		}
	}

	require.Len(t, counts, 4)
	for sub, n := range counts {
		assert.Equal(t, 4, n, "subdirectory %s", sub)
	}
}

func TestSubdirDistributionEvenness(t *testing.T) {
	grid, err := NewGrid(9)
	require.NoError(t, err)

	counts := map[string]int{}
	total := 0
	for x := 1000; x < 1031; x++ {
		for y := 2000; y < 2031; y++ {
			counts[grid.Subdir(geo.Tile{Z: 18, X: x, Y: y})]++
			total++
		}
	}

	require.Len(t, counts, 9)

	// 31 is not a multiple of 3, so per-axis counts are 11/10/10; occupancy
	// may deviate from the mean but stays within one unit per axis share.
	minCount, maxCount := total, 0
	for _, n := range counts {
		minCount = min(minCount, n)
		maxCount = max(maxCount, n)
	}
	assert.LessOrEqual(t, maxCount-minCount, 21) // 11*11 - 10*10
	assert.Equal(t, 31*31, total)
}
