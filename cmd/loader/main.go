package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/maprover/glbtiles/internal/config"
	"github.com/maprover/glbtiles/internal/fetch"
	"github.com/maprover/glbtiles/internal/logger"
	"github.com/maprover/glbtiles/internal/shard"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file with region presets"`
	Limit      []string `short:"l" long:"limit"  env:"LIMIT_NAMES" description:"Limit download to specific preset names"`

	Center string  `long:"center-coord" description:"Center of a square region as 'lat,lon'"`
	Size   float64 `long:"size"         description:"Square region side length in meters"`
	SW     string  `long:"sw-coord"     description:"Southwest corner as 'lat,lon'"`
	NE     string  `long:"ne-coord"     description:"Northeast corner as 'lat,lon'"`

	Zoom        int     `short:"z" long:"zoom"        env:"ZOOM"        description:"Tile zoom level" default:"18"`
	Out         string  `short:"o" long:"out"         env:"OUT_DIR"     description:"Output directory" default:"./tiles"`
	APIKey      string  `short:"k" long:"api-key"     env:"API_KEY"     description:"Tile service API key"`
	Concurrency int     `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrent requests" default:"100"`
	Split       int     `short:"s" long:"split"       env:"SPLIT"       description:"Split tiles into a grid of subdirectories (perfect square: 1, 4, 9, 16, ...)" default:"1"`
	Rate        float64 `long:"rate"                  env:"RATE"        description:"Request rate limit per second (0 = unlimited)"`
	Force       bool    `short:"f" long:"force"       description:"Force overwrite of existing files"`
	Strict      bool    `long:"strict"                description:"Exit non-zero if any tile failed"`
	NoProgress  bool    `long:"no-progress"           description:"Disable the progress bar"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	endpoint := fetch.Endpoint{
		Host:       config.DefaultHost,
		Generation: config.DefaultGeneration,
		Tileset:    config.DefaultTileset,
		APIKey:     opts.APIKey,
	}

	regions := resolveRegions(&opts, &endpoint)

	if opts.Concurrency <= 0 {
		opts.Concurrency = 100
	}

	// Validate and plan every region before the first request goes out.
	plans := make([]plan, 0, len(regions))
	for _, region := range regions {
		plans = append(plans, planRegion(region, endpoint, &opts))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient()
	failed := 0

	for _, p := range plans {
		failed += download(ctx, p, client, &opts)

		if ctx.Err() != nil {
			log.Warn().Msg("Download interrupted")
			os.Exit(1)
		}
	}

	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("Loader finished with failures")
		if opts.Strict {
			os.Exit(1)
		}
		return
	}

	log.Info().Msg("Loader finished successfully")
}

// resolveRegions builds the list of region presets to download, either from
// the configuration file (optionally filtered by --limit) or from the ad hoc
// region flags. All validation happens here, before any request is issued.
func resolveRegions(opts *Options, endpoint *fetch.Endpoint) []config.Region {
	if opts.ConfigFile == "" {
		if len(opts.Limit) > 0 {
			log.Fatal().Msg("--limit requires a configuration file")
		}

		return []config.Region{{
			Name:   "region",
			Center: opts.Center,
			Size:   opts.Size,
			SW:     opts.SW,
			NE:     opts.NE,
			Zoom:   opts.Zoom,
			Split:  opts.Split,
		}}
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	endpoint.Host = cfg.Endpoint.Host
	endpoint.Generation = cfg.Endpoint.Generation
	endpoint.Tileset = cfg.Endpoint.Tileset
	if endpoint.APIKey == "" {
		endpoint.APIKey = cfg.APIKey
	}

	regions := cfg.Regions
	for i := range regions {
		if regions[i].Zoom <= 0 {
			if cfg.Zoom > 0 {
				regions[i].Zoom = cfg.Zoom
			} else {
				regions[i].Zoom = opts.Zoom
			}
		}
		if regions[i].Split <= 0 {
			if cfg.Split > 0 {
				regions[i].Split = cfg.Split
			} else {
				regions[i].Split = opts.Split
			}
		}
	}

	if len(opts.Limit) == 0 {
		return regions
	}

	available := make(map[string]config.Region)
	for _, region := range regions {
		available[region.Name] = region
	}

	selected := make([]config.Region, 0, len(opts.Limit))
	seen := make(map[string]bool)
	for _, name := range opts.Limit {
		if seen[name] {
			continue
		}
		seen[name] = true

		if region, ok := available[name]; ok {
			selected = append(selected, region)
		} else {
			log.Error().
				Str("name", name).
				Msg("Region specified in --limit not found in configuration")
		}
	}

	return selected
}

// plan is a fully validated region expanded into its download jobs.
type plan struct {
	region config.Region
	jobs   []fetch.Job
	wrapped bool
}

// planRegion validates one region preset and expands it into jobs.
// Any validation failure aborts the whole run before a request is issued.
func planRegion(region config.Region, endpoint fetch.Endpoint, opts *Options) plan {
	bbox, err := region.BoundingBox()
	if err != nil {
		log.Fatal().Err(err).Str("region", region.Name).Msg("Invalid region spec")
	}

	grid, err := shard.NewGrid(region.Split)
	if err != nil {
		log.Fatal().Err(err).Str("region", region.Name).Msg("Invalid split factor")
	}

	ranges, err := bbox.TileRanges(region.Zoom)
	if err != nil {
		log.Fatal().Err(err).Str("region", region.Name).Msg("Invalid coordinates")
	}

	return plan{
		region: region,
		jobs:   fetch.BuildJobs(ranges, endpoint, opts.Out, grid),
		wrapped: len(ranges) > 1,
	}
}

// download runs one planned region, returning its failed tile count.
func download(ctx context.Context, p plan, client *http.Client, opts *Options) int {
	region := p.region
	jobs := p.jobs

	if len(jobs) == 0 {
		log.Warn().Str("region", region.Name).Msg("No tiles in the specified range")
		return 0
	}

	log.Info().
		Str("region", region.Name).
		Int("zoom", region.Zoom).
		Int("tiles", len(jobs)).
		Int("concurrency", opts.Concurrency).
		Int("split", region.Split).
		Str("out", opts.Out).
		Bool("antimeridian", p.wrapped).
		Msg("Starting download")

	runOpts := fetch.Options{
		Concurrency: opts.Concurrency,
		Force:       opts.Force,
		Rate:        opts.Rate,
		Client:      client,
	}

	if !opts.NoProgress {
		bar := progressbar.Default(int64(len(jobs)), region.Name)
		runOpts.OnDone = func(fetch.Job, fetch.Outcome) { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}

	summary := fetch.Run(ctx, jobs, runOpts)

	for _, failure := range summary.Failures() {
		log.Error().
			Err(failure.Err).
			Int("zoom", failure.Tile.Z).
			Int("x", failure.Tile.X).
			Int("y", failure.Tile.Y).
			Msg("Tile download failed")
	}

	log.Info().
		Str("region", region.Name).
		Int("attempted", summary.Attempted()).
		Int("succeeded", summary.Succeeded()).
		Int("failed", summary.Failed()).
		Int("skipped", summary.Skipped()).
		Msg("Download finished")

	return summary.Failed()
}
