package covers

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, m image.Image) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, m))
}

func uniformImage(v uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func checkerboard() *image.Gray {
	m := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x+y)%2 == 0 {
				m.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	return m
}

// writeFixtures populates dir with one cover per strategy branch.
func writeFixtures(t *testing.T, dir string) {
	t.Helper()

	writePNG(t, filepath.Join(dir, "dark.png"), uniformImage(20))
	writePNG(t, filepath.Join(dir, "flat.png"), uniformImage(0x80))
	writePNG(t, filepath.Join(dir, "sharp.png"), checkerboard())
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestConvertSelectsStrategies(t *testing.T) {
	source := t.TempDir()
	staging := t.TempDir()
	writeFixtures(t, source)

	conv := New(DefaultConfig(), nil, nil)

	summary, err := conv.Convert(context.Background(), source, staging)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	strategies := make(map[string]string)
	for _, o := range summary.Outcomes {
		strategies[filepath.Base(o.Path)] = o.Strategy
	}
	assert.Equal(t, map[string]string{
		"dark.png":  "Dark Image Rescue",
		"flat.png":  "Local Enhance",
		"sharp.png": "None",
	}, strategies)

	assert.Equal(t, []string{"dark.png", "flat.png", "sharp.png"}, listDir(t, staging))
}

func TestConvertIsolatesFailures(t *testing.T) {
	source := t.TempDir()
	staging := t.TempDir()
	writeFixtures(t, source)
	require.NoError(t, os.WriteFile(filepath.Join(source, "bad.png"), []byte("not a png"), 0o644))

	conv := New(DefaultConfig(), nil, nil)

	summary, err := conv.Convert(context.Background(), source, staging)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	for _, o := range summary.Outcomes {
		if filepath.Base(o.Path) == "bad.png" {
			assert.True(t, o.Failed())
			assert.Error(t, o.Err)
		} else {
			assert.False(t, o.Failed())
		}
	}

	// The corrupt file leaves no staging artifact behind.
	assert.Equal(t, []string{"dark.png", "flat.png", "sharp.png"}, listDir(t, staging))
}

func TestConvertEmptyDirectory(t *testing.T) {
	conv := New(DefaultConfig(), nil, nil)

	summary, err := conv.Convert(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Outcomes)
}

func TestConvertSkipsNonImages(t *testing.T) {
	source := t.TempDir()
	staging := t.TempDir()
	writeFixtures(t, source)

	require.NoError(t, os.WriteFile(filepath.Join(source, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, ".hidden.png"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(source, "nested"), 0o755))
	writePNG(t, filepath.Join(source, "nested", "deep.png"), uniformImage(0x80))

	conv := New(DefaultConfig(), nil, nil)

	summary, err := conv.Convert(context.Background(), source, staging)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
}

func TestConvertMissingSourceDir(t *testing.T) {
	conv := New(DefaultConfig(), nil, nil)

	_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}

func TestConvertIdempotent(t *testing.T) {
	source := t.TempDir()
	writeFixtures(t, source)

	conv := New(DefaultConfig(), nil, nil)

	first := t.TempDir()
	s1, err := conv.Convert(context.Background(), source, first)
	require.NoError(t, err)

	second := t.TempDir()
	s2, err := conv.Convert(context.Background(), source, second)
	require.NoError(t, err)

	assert.Equal(t, s1.Succeeded, s2.Succeeded)
	assert.Equal(t, s1.Failed, s2.Failed)
	assert.Equal(t, listDir(t, first), listDir(t, second))
}

func TestConvertCancelled(t *testing.T) {
	source := t.TempDir()
	writeFixtures(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := New(DefaultConfig(), nil, nil)

	_, err := conv.Convert(ctx, source, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertBoundedWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	conv := New(cfg, nil, nil)
	assert.Equal(t, 1, conv.workers())

	conv = New(DefaultConfig(), nil, nil)
	assert.GreaterOrEqual(t, conv.workers(), 1)
}
