package decompress

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// stubTool writes a shell script standing in for gltf-transform. The script
// receives ("ktxdecompress", in, out) and copies in to out; with fail=true it
// exits non-zero instead.
func stubTool(t *testing.T, fail bool) Tool {
	t.Helper()

	script := "#!/bin/sh\ncp \"$2\" \"$3\"\n"
	if fail {
		script = "#!/bin/sh\necho 'boom' >&2\nexit 1\n"
	}

	path := filepath.Join(t.TempDir(), "gltf-transform")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	return Tool{path: path}
}

func TestCollectNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.glb"), "b")
	writeFile(t, filepath.Join(dir, "a.GLB"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, "00_01", "c.glb"), "c")

	files, err := Collect(dir, false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.GLB"),
		filepath.Join(dir, "b.glb"),
	}, files)
}

func TestCollectRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.glb"), "b")
	writeFile(t, filepath.Join(dir, "00_01", "c.glb"), "c")
	writeFile(t, filepath.Join(dir, "00_01", "skip.part"), "x")

	files, err := Collect(dir, true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "00_01", "c.glb"),
		filepath.Join(dir, "b.glb"),
	}, files)
}

func TestRunProcessesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.glb"), "tile-a")
	writeFile(t, filepath.Join(dir, "b.glb"), "tile-b")

	files, err := Collect(dir, false)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "processed")
	summary, err := Run(context.Background(), stubTool(t, false), files, Options{OutDir: outDir, Jobs: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Failures())

	data, err := os.ReadFile(filepath.Join(outDir, "a.glb"))
	require.NoError(t, err)
	assert.Equal(t, "tile-a", string(data))
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.glb"), "new")

	outDir := filepath.Join(dir, "processed")
	writeFile(t, filepath.Join(outDir, "a.glb"), "old")

	files, err := Collect(dir, false)
	require.NoError(t, err)

	summary, err := Run(context.Background(), stubTool(t, false), files, Options{OutDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)

	data, err := os.ReadFile(filepath.Join(outDir, "a.glb"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.glb"), "a")
	writeFile(t, filepath.Join(dir, "b.glb"), "b")

	files, err := Collect(dir, false)
	require.NoError(t, err)

	summary, err := Run(context.Background(), stubTool(t, true), files, Options{OutDir: filepath.Join(dir, "out")})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)

	failures := summary.Failures()
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0].Err.Error(), "boom")
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.glb"), "a")

	files, err := Collect(dir, false)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out")
	summary, err := Run(context.Background(), stubTool(t, false), files, Options{OutDir: outDir, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)

	_, err = os.Stat(filepath.Join(outDir, "a.glb"))
	assert.True(t, os.IsNotExist(err), "dry run must not write outputs")
}

func TestDetectToolNpxFallback(t *testing.T) {
	tool := DetectTool(true)
	assert.True(t, tool.npx)
	assert.Contains(t, tool.String(), "@gltf-transform/cli")
}
