/*
Package mono renders source artwork as 1-bit covers for the Playdate
screen.

A cover is fitted within a 240 by 240 pixel box preserving aspect
ratio, converted to perceptual grayscale, run through the selected
enhancement steps, and quantized to pure black and white with an 8 by 8
Bayer ordered dither. The ordered matrix produces deterministic,
spatially periodic patterns; error diffusion would not tile and makes
output comparison across runs harder.
*/
package mono

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/gift"

	"github.com/CrankBoyHQ/crankboy-covers/enhance"
)

// MaxSize is the bounding box the Playdate launcher expects.
const MaxSize = 240

// Palette is the fixed output palette: index 0 black, index 1 white.
var Palette = color.Palette{color.Black, color.White}

// ErrEmptyImage means the source decoded to zero pixels.
var ErrEmptyImage = errors.New("mono: empty source image")

// bayer8 is the standard 8x8 Bayer threshold matrix with values in
// 0-63.
var bayer8 = [8][8]uint8{
	{0, 32, 8, 40, 2, 34, 10, 42},
	{48, 16, 56, 24, 50, 18, 58, 26},
	{12, 44, 4, 36, 14, 46, 6, 38},
	{60, 28, 52, 20, 62, 30, 54, 22},
	{3, 35, 11, 43, 1, 33, 9, 41},
	{51, 19, 59, 27, 49, 17, 57, 25},
	{15, 47, 7, 39, 13, 45, 5, 37},
	{63, 31, 55, 23, 61, 29, 53, 21},
}

// Options tunes the geometry of the output cover.
type Options struct {
	// MaxSize overrides the default bounding box. Zero means MaxSize.
	MaxSize int
}

// Transform produces the 1-bit cover for m: resize to fit, perceptual
// grayscale, the strategy's enhancement steps in order, then ordered
// dithering down to the black/white palette. Images already inside the
// bounding box are not upscaled.
func Transform(m image.Image, s enhance.Strategy, o Options) (*image.Paletted, error) {
	if m == nil || m.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	size := o.MaxSize
	if size <= 0 {
		size = MaxSize
	}

	gray := drawFilters(m,
		gift.ResizeToFit(size, size, gift.LanczosResampling),
		grayscale709(),
	)

	for _, step := range s.Steps {
		gray = apply(gray, step)
	}

	return Dither(gray), nil
}

// grayscale709 converts to grayscale with the Rec. 709 weights, the
// same formula the statistics probe measures with. gift's stock
// Grayscale filter uses Rec. 601 and would dither from a different
// luminance than the one the strategy was selected on.
func grayscale709() gift.Filter {
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		v := 0.2126*r0 + 0.7152*g0 + 0.0722*b0
		return v, v, v, a0
	})
}

func apply(src *image.Gray, step enhance.Step) *image.Gray {
	switch step.Op {
	case enhance.OpGamma:
		return drawFilters(src, gift.Gamma(float32(step.Gamma)))
	case enhance.OpNormalize:
		return normalize(src)
	case enhance.OpLocalContrast:
		// Unsharp masking with a wide radius raises contrast against
		// the local neighborhood average instead of the whole image.
		return drawFilters(src, gift.UnsharpMask(float32(step.Radius), float32(step.Strength/100), 0))
	}
	return src
}

func drawFilters(src image.Image, filters ...gift.Filter) *image.Gray {
	g := gift.New(filters...)
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// normalize stretches the histogram so the darkest pixel maps to 0 and
// the brightest to 255. A single-valued image is returned unchanged;
// there is nothing to stretch.
func normalize(src *image.Gray) *image.Gray {
	lo, hi := uint8(0xff), uint8(0)
	for _, v := range src.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if lo >= hi {
		return src
	}

	dst := image.NewGray(src.Bounds())
	scale := 255 / float64(hi-lo)
	for i, v := range src.Pix {
		dst.Pix[i] = uint8(float64(v-lo)*scale + 0.5)
	}
	return dst
}

// Dither quantizes gray down to the black/white palette using the 8x8
// Bayer matrix. The pattern is a pure function of pixel position and
// value, so identical input always dithers identically.
func Dither(gray *image.Gray) *image.Paletted {
	b := gray.Bounds()
	dst := image.NewPaletted(b, Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			limit := (int(bayer8[y&7][x&7])*255 + 32) / 64
			if int(gray.GrayAt(x, y).Y) > limit {
				dst.SetColorIndex(x, y, 1)
			}
		}
	}
	return dst
}
