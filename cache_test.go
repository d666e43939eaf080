package covers

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha1File(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return fmt.Sprintf("%X", sha1.Sum(b))
}

func TestConvertPopulatesCache(t *testing.T) {
	source := t.TempDir()
	writeFixtures(t, source)

	db, err := OpenCoverDB(filepath.Join(t.TempDir(), "covers.db"))
	require.NoError(t, err)
	defer db.Close()

	conv := New(DefaultConfig(), db, nil)

	first := t.TempDir()
	summary, err := conv.Convert(context.Background(), source, first)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Succeeded)

	blob, err := db.FindCover(sha1File(t, filepath.Join(source, "dark.png")))
	require.NoError(t, err)
	require.NotNil(t, blob)

	// A second run serves the cached bytes and produces identical
	// staging output.
	second := t.TempDir()
	summary, err = conv.Convert(context.Background(), source, second)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)

	b1, err := os.ReadFile(filepath.Join(first, "dark.png"))
	require.NoError(t, err)
	b2, err := os.ReadFile(filepath.Join(second, "dark.png"))
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, blob, b2)
}
