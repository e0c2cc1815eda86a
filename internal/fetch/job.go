// Package fetch downloads tile sets with bounded concurrency.
package fetch

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/maprover/glbtiles/internal/geo"
	"github.com/maprover/glbtiles/internal/shard"
)

// Endpoint describes the remote tile service a job set is built against.
type Endpoint struct {
	Host       string
	Generation string
	Tileset    string
	APIKey     string
}

// URL renders the quadkey request URL for a tile.
func (e Endpoint) URL(t geo.Tile) string {
	return fmt.Sprintf("%s/tiles/mtx%s?g=%s&tf=%s&n=z&key=%s&form=web3d",
		e.Host, t.Quadkey(), e.Generation, e.Tileset, url.QueryEscape(e.APIKey))
}

// Job is one tile to fetch and where to put it.
type Job struct {
	Tile geo.Tile
	URL  string
	Path string
}

// BuildJobs expands tile ranges into one download job per tile, assigning
// each a sharded destination path under outDir. Tile files are named
// "{z}_{x}_{y}.glb" so re-running the same download is idempotent.
func BuildJobs(ranges []geo.TileRange, ep Endpoint, outDir string, grid shard.Grid) []Job {
	total := 0
	for _, r := range ranges {
		total += r.Count()
	}

	jobs := make([]Job, 0, total)
	for _, r := range ranges {
		for _, t := range r.Tiles() {
			dir := outDir
			if sub := grid.Subdir(t); sub != "" {
				dir = filepath.Join(outDir, sub)
			}

			jobs = append(jobs, Job{
				Tile: t,
				URL:  ep.URL(t),
				Path: filepath.Join(dir, fmt.Sprintf("%d_%d_%d.glb", t.Z, t.X, t.Y)),
			})
		}
	}

	return jobs
}
