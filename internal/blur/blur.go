// Package blur renders reduced-resolution, blurred renditions of a
// source image. Two profiles are used by the cache pipeline: a fast
// preview (small, heavily smoothed, cheap to encode) and a final
// rendition at the configured quality. Output is deterministic for
// identical inputs.
package blur

import (
	"context"
	"fmt"
	"image"
	_ "image/gif" // registered source decoders
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// Options control one transform invocation.
type Options struct {
	OutPath  string  // destination file, overwritten in place
	ZipRatio float64 // downscale divisor relative to target (>= 1)
	Radius   int     // blur radius in output pixels
	Quality  int     // JPEG quality 1..100
}

// Transformer produces a blurred rendition of src sized for target.
// Implementations return the output path on success.
type Transformer interface {
	Transform(ctx context.Context, src string, target image.Point, opts Options) (string, error)
}

// Processor is the in-process Transformer: decode, downscale, box-blur,
// JPEG-encode.
type Processor struct{}

// Transform decodes src, scales it to target/ZipRatio, applies the
// blur, and writes a JPEG to opts.OutPath. The returned path equals
// opts.OutPath. Once started the work always runs to completion; the
// context is only consulted between stages.
func (p *Processor) Transform(ctx context.Context, src string, target image.Point, opts Options) (string, error) {
	if target.X <= 0 || target.Y <= 0 {
		return "", fmt.Errorf("blur: non-positive target %dx%d", target.X, target.Y)
	}
	if opts.ZipRatio < 1 {
		opts.ZipRatio = 1
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("blur: open source: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("blur: decode %s: %w", src, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	w := int(float64(target.X) / opts.ZipRatio)
	h := int(float64(target.Y) / opts.ZipRatio)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	blurred := boxBlur(scaled, opts.Radius)

	out, err := os.Create(opts.OutPath)
	if err != nil {
		return "", fmt.Errorf("blur: create output: %w", err)
	}
	q := opts.Quality
	if q < 1 || q > 100 {
		q = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(out, blurred, &jpeg.Options{Quality: q}); err != nil {
		out.Close()
		return "", fmt.Errorf("blur: encode %s: %w", opts.OutPath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("blur: close output: %w", err)
	}
	return opts.OutPath, nil
}

// boxBlur applies three separable box passes, which approximates a
// gaussian of the given radius closely enough for a backdrop.
func boxBlur(img *image.RGBA, radius int) *image.RGBA {
	if radius <= 0 {
		return img
	}
	cur := img
	tmp := image.NewRGBA(img.Bounds())
	for pass := 0; pass < 3; pass++ {
		boxPassH(tmp, cur, radius)
		boxPassV(cur, tmp, radius)
	}
	return cur
}

// boxPassH writes a horizontally box-averaged copy of src into dst
// using a sliding window sum per row.
func boxPassH(dst, src *image.RGBA, radius int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	win := 2*radius + 1
	for y := 0; y < h; y++ {
		var sr, sg, sb, sa int
		// Prime the window; edge pixels are clamped.
		for i := -radius; i <= radius; i++ {
			r, g, bl, a := rgbaAt(src, clampIdx(i, w), y)
			sr += r
			sg += g
			sb += bl
			sa += a
		}
		for x := 0; x < w; x++ {
			setRGBA(dst, x, y, sr/win, sg/win, sb/win, sa/win)
			or, og, ob, oa := rgbaAt(src, clampIdx(x-radius, w), y)
			nr, ng, nb, na := rgbaAt(src, clampIdx(x+radius+1, w), y)
			sr += nr - or
			sg += ng - og
			sb += nb - ob
			sa += na - oa
		}
	}
}

// boxPassV is the vertical counterpart of boxPassH.
func boxPassV(dst, src *image.RGBA, radius int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	win := 2*radius + 1
	for x := 0; x < w; x++ {
		var sr, sg, sb, sa int
		for i := -radius; i <= radius; i++ {
			r, g, bl, a := rgbaAt(src, x, clampIdx(i, h))
			sr += r
			sg += g
			sb += bl
			sa += a
		}
		for y := 0; y < h; y++ {
			setRGBA(dst, x, y, sr/win, sg/win, sb/win, sa/win)
			or, og, ob, oa := rgbaAt(src, x, clampIdx(y-radius, h))
			nr, ng, nb, na := rgbaAt(src, x, clampIdx(y+radius+1, h))
			sr += nr - or
			sg += ng - og
			sb += nb - ob
			sa += na - oa
		}
	}
}

func rgbaAt(img *image.RGBA, x, y int) (r, g, b, a int) {
	i := img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
	return int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2]), int(img.Pix[i+3])
}

func setRGBA(img *image.RGBA, x, y, r, g, b, a int) {
	i := img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
	img.Pix[i] = uint8(r)
	img.Pix[i+1] = uint8(g)
	img.Pix[i+2] = uint8(b)
	img.Pix[i+3] = uint8(a)
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
