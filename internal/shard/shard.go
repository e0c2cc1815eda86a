// Package shard maps tiles onto a deterministic grid of output subdirectories.
package shard

import (
	"errors"
	"fmt"
	"math"

	"github.com/maprover/glbtiles/internal/geo"
)

// ErrInvalidSplit marks split factors that are not positive perfect squares.
var ErrInvalidSplit = errors.New("invalid split factor")

// Grid fans tile files out across size x size subdirectories. Assignment is
// pure modulo arithmetic, so the same tile lands in the same subdirectory on
// every run.
type Grid struct {
	size int
}

// NewGrid validates the split factor and returns the resulting grid.
// The factor must be a perfect square (1, 4, 9, 16, 25, ...).
func NewGrid(split int) (Grid, error) {
	if split <= 0 {
		return Grid{}, fmt.Errorf("%w: must be greater than 0, got %d", ErrInvalidSplit, split)
	}

	size := int(math.Sqrt(float64(split)))
	if size*size != split {
		return Grid{}, fmt.Errorf("%w: must be a perfect square (1, 4, 9, 16, 25, ...), got %d", ErrInvalidSplit, split)
	}

	return Grid{size: size}, nil
}

// Size returns the grid dimension (sqrt of the split factor).
func (g Grid) Size() int {
	return g.size
}

// Subdir returns the subdirectory name for a tile, or an empty string when
// the layout is flat (split factor 1).
func (g Grid) Subdir(t geo.Tile) string {
	if g.size <= 1 {
		return ""
	}

	return fmt.Sprintf("%02d_%02d", t.X%g.size, t.Y%g.size)
}
