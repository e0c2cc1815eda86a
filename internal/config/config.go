// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"

	"github.com/maprover/glbtiles/internal/geo"

	"gopkg.in/yaml.v3"
)

// Default remote tile service coordinates.
const (
	DefaultHost       = "https://t.ssl.ak.tiles.virtualearth.net"
	DefaultGeneration = "15340"
	DefaultTileset    = "3dv4"
)

// Endpoint describes the remote tile service shared by all regions.
type Endpoint struct {
	Host       string `yaml:"host,omitempty"`
	Generation string `yaml:"generation,omitempty"`
	Tileset    string `yaml:"tileset,omitempty"`
}

// Region is a named download preset. Exactly one of center+size or sw+ne
// must be set; coordinates are "lat,lon" strings.
type Region struct {
	Name   string  `yaml:"name"`
	Center string  `yaml:"center,omitempty"`
	Size   float64 `yaml:"size,omitempty"`
	SW     string  `yaml:"sw,omitempty"`
	NE     string  `yaml:"ne,omitempty"`
	Zoom   int     `yaml:"zoom,omitempty"`
	Split  int     `yaml:"split,omitempty"`
}

// BoundingBox resolves the region preset into a geographic bounding box,
// enforcing that exactly one input mode is present.
func (r Region) BoundingBox() (geo.BoundingBox, error) {
	hasCenter := r.Center != "" || r.Size != 0
	hasCorners := r.SW != "" || r.NE != ""

	switch {
	case hasCenter && hasCorners:
		return geo.BoundingBox{}, fmt.Errorf("%w: both center+size and sw+ne corners given", geo.ErrInvalidRegion)

	case hasCenter:
		if r.Center == "" || r.Size == 0 {
			return geo.BoundingBox{}, fmt.Errorf("%w: center and size must be set together", geo.ErrInvalidRegion)
		}
		center, err := geo.ParsePoint(r.Center)
		if err != nil {
			return geo.BoundingBox{}, err
		}

		return geo.RegionFromCenter(center, r.Size)

	case hasCorners:
		if r.SW == "" || r.NE == "" {
			return geo.BoundingBox{}, fmt.Errorf("%w: sw and ne corners must be set together", geo.ErrInvalidRegion)
		}
		sw, err := geo.ParsePoint(r.SW)
		if err != nil {
			return geo.BoundingBox{}, err
		}
		ne, err := geo.ParsePoint(r.NE)
		if err != nil {
			return geo.BoundingBox{}, err
		}

		return geo.RegionFromCorners(sw, ne)

	default:
		return geo.BoundingBox{}, fmt.Errorf("%w: neither center+size nor sw+ne corners given", geo.ErrInvalidRegion)
	}
}

// Config represents the root configuration file structure.
type Config struct {
	Endpoint Endpoint `yaml:"endpoint,omitempty"`
	APIKey   string   `yaml:"api_key,omitempty"`
	Zoom     int      `yaml:"zoom,omitempty"`
	Split    int      `yaml:"split,omitempty"`
	Regions  []Region `yaml:"regions"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Endpoint.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills unset endpoint fields with the known service defaults.
func (e *Endpoint) ApplyDefaults() {
	if e.Host == "" {
		e.Host = DefaultHost
	}
	if e.Generation == "" {
		e.Generation = DefaultGeneration
	}
	if e.Tileset == "" {
		e.Tileset = DefaultTileset
	}
}
