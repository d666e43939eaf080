package covers

import (
	"io"
	"os"
	"path/filepath"
)

const (
	// PackageExt is the suffix pdc appends to the package directory it
	// builds.
	PackageExt = ".pdx"

	// AssetExt is the extension of the compiled image assets inside a
	// package. Extraction matches on this alone and never inspects
	// file contents.
	AssetExt = ".pdi"
)

// ExtractAssets walks packageDir recursively, moves every compiled
// image asset into outputDir flattening the directory structure, and
// returns the number of assets moved. Everything that is not an asset
// is left behind.
//
// Asset filenames are assumed unique across the package. On collision
// the extractor logs a warning and overwrites, so the last file walked
// wins. Hidden files and directories are skipped, so an asset nested
// under a hidden directory is not extracted.
func (c *Converter) ExtractAssets(packageDir, outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, err
	}

	count := 0
	err := filepath.Walk(packageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Ignore any hidden files or directories, otherwise we end up
		// fighting with things like Spotlight, etc.
		if info.Name()[0] == '.' && path != packageDir {
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || filepath.Ext(path) != AssetExt {
			return nil
		}

		dst := filepath.Join(outputDir, info.Name())
		if _, err := os.Stat(dst); err == nil {
			c.logger.Printf("overwriting %s: duplicate asset name", info.Name())
		}

		if err := moveFile(path, dst); err != nil {
			return err
		}
		count++

		return nil
	})

	return count, err
}

// moveFile renames src to dst, falling back to copy and remove when
// the two sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
