package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/maprover/glbtiles/internal/decompress"
	"github.com/maprover/glbtiles/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Out        string `short:"o" long:"out"       description:"Output directory (defaults to <input>/processed)"`
	Recursive  bool   `short:"r" long:"recursive" description:"Recurse into subdirectories"`
	Force      bool   `short:"f" long:"force"     description:"Overwrite outputs if they already exist"`
	Jobs       int    `short:"j" long:"jobs"      env:"JOBS" description:"Limit worker processes (default: number of logical CPUs)"`
	UseNpx     bool   `long:"use-npx"             description:"Force using npx instead of a globally installed gltf-transform"`
	DryRun     bool   `long:"dry-run"             description:"List what would be processed without executing"`
	NoProgress bool   `long:"no-progress"         description:"Disable the progress bar"`

	Args struct {
		InputDir string `positional-arg-name:"input-dir" description:"Directory to scan for .glb files"`
	} `positional-args:"yes"`
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

	inputDir := opts.Args.InputDir
	if inputDir == "" {
		inputDir = "."
	}

	outDir := opts.Out
	if outDir == "" {
		outDir = filepath.Join(inputDir, "processed")
	}

	tool := decompress.DetectTool(opts.UseNpx)

	files, err := decompress.Collect(inputDir, opts.Recursive)
	if err != nil {
		log.Fatal().Err(err).Str("dir", inputDir).Msg("Failed to scan for .glb files")
	}

	log.Info().
		Int("files", len(files)).
		Str("in", inputDir).
		Str("out", outDir).
		Str("tool", tool.String()).
		Msg("Starting decompression")

	if len(files) == 0 {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := decompress.Options{
		OutDir: outDir,
		Force:  opts.Force,
		Jobs:   opts.Jobs,
		DryRun: opts.DryRun,
	}

	if !opts.NoProgress && !opts.DryRun {
		bar := progressbar.Default(int64(len(files)), "glb")
		runOpts.OnDone = func(string, error) { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}

	summary, err := decompress.Run(ctx, tool, files, runOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("Decompression run failed")
	}

	for _, failure := range summary.Failures() {
		log.Error().Err(failure.Err).Str("file", failure.Path).Msg("Decompression failed")
	}

	failed := len(summary.Failures())
	log.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", failed).
		Msg("Decompression finished")

	if failed > 0 {
		os.Exit(1)
	}
}
