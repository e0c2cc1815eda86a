// Package decompress drives the external gltf-transform CLI to unpack KTX2
// textures from downloaded GLB tiles.
package decompress

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const npxPackage = "@gltf-transform/cli"

// Tool locates the decompression CLI: either a globally installed
// gltf-transform binary or the npx fallback.
type Tool struct {
	path string
	npx  bool
}

// DetectTool prefers a globally installed gltf-transform, falling back to
// "npx -y @gltf-transform/cli" when none is on PATH or forceNpx is set.
func DetectTool(forceNpx bool) Tool {
	if !forceNpx {
		if path, err := exec.LookPath("gltf-transform"); err == nil {
			return Tool{path: path}
		}
	}

	return Tool{npx: true}
}

// String describes the tool for logging.
func (t Tool) String() string {
	if t.npx {
		return "npx -y " + npxPackage
	}

	return t.path
}

func (t Tool) command(ctx context.Context, in, out string) *exec.Cmd {
	if t.npx {
		return exec.CommandContext(ctx, "npx", "-y", npxPackage, "ktxdecompress", in, out)
	}

	return exec.CommandContext(ctx, t.path, "ktxdecompress", in, out)
}

// Collect gathers .glb files under root, sorted for a stable processing order.
func Collect(root string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isGLB(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if isGLB(path) {
				files = append(files, path)
			}
		}
	}

	sort.Strings(files)

	return files, nil
}

func isGLB(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".glb")
}

// Failure records one file that could not be decompressed.
type Failure struct {
	Path string
	Err  error
}

// Summary reports the result of a decompression run.
type Summary struct {
	Processed int
	Skipped   int

	mu       sync.Mutex
	failures []Failure
}

// Failures returns a copy of the recorded per-file failures.
func (s *Summary) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Failure, len(s.failures))
	copy(out, s.failures)

	return out
}

func (s *Summary) addFailure(path string, err error) {
	s.mu.Lock()
	s.failures = append(s.failures, Failure{Path: path, Err: err})
	s.mu.Unlock()
}

// Options configures a decompression run.
type Options struct {
	// OutDir receives the decompressed files; parent directories are created.
	OutDir string
	// Force overwrites outputs that already exist.
	Force bool
	// Jobs bounds the worker pool. 0 means the number of logical CPUs.
	Jobs int
	// DryRun lists what would be processed without invoking the tool.
	DryRun bool
	// OnDone is called once per file as it finishes.
	OnDone func(path string, err error)
}

// Run decompresses the files on a bounded pool of workers. Each file is
// independent: a non-zero exit from the tool marks that file failed and
// leaves the rest of the run untouched.
func Run(ctx context.Context, tool Tool, files []string, opts Options) (*Summary, error) {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	summary := &Summary{}

	var g errgroup.Group
	g.SetLimit(opts.Jobs)

	var mu sync.Mutex
	for _, in := range files {
		g.Go(func() error {
			out := filepath.Join(opts.OutDir, filepath.Base(in))

			if !opts.Force {
				if _, err := os.Stat(out); err == nil {
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					if opts.OnDone != nil {
						opts.OnDone(in, nil)
					}
					return nil
				}
			}

			if opts.DryRun {
				log.Info().Str("in", in).Str("out", out).Msg("Would decompress (dry-run)")
				mu.Lock()
				summary.Processed++
				mu.Unlock()
				if opts.OnDone != nil {
					opts.OnDone(in, nil)
				}
				return nil
			}

			err := runOne(ctx, tool, in, out)
			if err != nil {
				summary.addFailure(in, err)
			} else {
				mu.Lock()
				summary.Processed++
				mu.Unlock()
			}
			if opts.OnDone != nil {
				opts.OnDone(in, err)
			}

			return nil
		})
	}

	// Workers never return errors; failures are collected in the summary.
	_ = g.Wait()

	return summary, nil
}

func runOne(ctx context.Context, tool Tool, in, out string) error {
	cmd := tool.command(ctx, in, out)

	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("ktxdecompress %s: %w: %s", in, err, msg)
		}
		return fmt.Errorf("ktxdecompress %s: %w", in, err)
	}

	return nil
}
