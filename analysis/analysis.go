/*
Package analysis computes brightness statistics for source artwork.

Pixels are weighed with the Rec. 709 luma coefficients rather than a
plain channel average; dithering quality downstream depends on
perceptually correct gray values.
*/
package analysis

import (
	"image"
	"image/color"
	"math"
)

// Mask excludes a band on the left edge of the image from measurement.
// It affects statistics only; output pixels are never masked.
type Mask struct {
	// LeftPercent is the percentage of the image width, counted from
	// the left edge, to leave out of the sample. Zero measures the
	// whole image.
	LeftPercent float64
}

// Statistics describes the luminance distribution of one source image.
// Mean and StdDev are normalized to [0, 1]. A Statistics value is
// computed once and never modified.
type Statistics struct {
	Mean   float64
	StdDev float64
	Path   string
}

// Luma returns the perceptual luminance of c in [0, 1].
func Luma(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 0xffff
}

// Measure computes the luminance statistics of m, skipping any region
// the mask excludes. A fully masked or empty image yields zero
// statistics.
func Measure(m image.Image, mask Mask) Statistics {
	b := m.Bounds()

	minX := b.Min.X
	if mask.LeftPercent > 0 {
		minX += int(float64(b.Dx()) * mask.LeftPercent / 100)
	}

	var sum, sumSq float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := minX; x < b.Max.X; x++ {
			v := Luma(m.At(x, y))
			sum += v
			sumSq += v * v
			n++
		}
	}

	if n == 0 {
		return Statistics{}
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		// Uniform images can land a hair below zero in floating point
		variance = 0
	}

	return Statistics{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
	}
}
