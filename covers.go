/*
Package covers converts arbitrary PNG artwork into 1-bit dithered cover
images sized for the Playdate screen, and extracts the compiled binary
assets from the package the pdc compiler builds out of them.
*/
package covers

import (
	"io"
	"log"

	"github.com/CrankBoyHQ/crankboy-covers/enhance"
	"github.com/CrankBoyHQ/crankboy-covers/mono"
)

// Config carries every tunable the pipeline reads. It is passed by
// value and never modified after New.
type Config struct {
	// MaxSize is the bounding box covers are fitted into, preserving
	// aspect ratio.
	MaxSize int

	// MaskPercent excludes the leftmost percentage of the image width
	// from brightness statistics. Box-art frames and spine bands sit on
	// the left edge of most scans and would otherwise skew the mean.
	// Zero measures the whole image.
	MaskPercent float64

	// Enhance holds the strategy-selection thresholds and the
	// enhancement parameters.
	Enhance enhance.Params

	// Workers caps the conversion pool. Zero means one worker per CPU.
	Workers int
}

// DefaultConfig returns the settings used for production cover runs.
func DefaultConfig() Config {
	return Config{
		MaxSize: mono.MaxSize,
		Enhance: enhance.DefaultParams(),
	}
}

// Converter runs the cover pipeline: batch conversion, compilation and
// asset extraction.
type Converter struct {
	cfg    Config
	db     *CoverDB
	logger *log.Logger
}

// New returns a Converter. db may be nil to disable the conversion
// cache; a nil logger discards all progress output.
func New(cfg Config, db *CoverDB, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Converter{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}
