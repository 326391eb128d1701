package export

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Rasterize produces an opaque full-height bitmap of target.
func Rasterize(ctx context.Context, target Target, opts RasterOptions) (*image.RGBA, error) {
	if target == nil {
		return nil, NewError(KindMissingRenderTarget, "no render target", nil)
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Scale < 1 {
		return nil, NewError(KindValidation, fmt.Sprintf("oversampling scale %v is below 1", opts.Scale), nil)
	}
	if opts.ReferenceDPI <= 0 {
		opts.ReferenceDPI = ReferenceDPI
	}
	opts.Background = Opaque(opts.Background)

	img, err := target.Rasterize(ctx, opts)
	if err != nil {
		if KindFromError(err) == KindInternal {
			return nil, NewError(KindRenderFailed, "rasterize target", err)
		}
		return nil, err
	}
	if img == nil {
		return nil, NewError(KindRenderFailed, "renderer produced no bitmap", nil)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, NewError(KindRenderFailed, fmt.Sprintf("renderer produced an empty bitmap (%dx%d)", bounds.Dx(), bounds.Dy()), nil)
	}

	return flatten(img, opts.Background), nil
}

// flatten composites img over bg so no transparent pixel survives.
func flatten(img image.Image, bg color.Color) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Over)
	return out
}

// Opaque drops the alpha channel of c. A nil color becomes white.
func Opaque(c color.Color) color.Color {
	if c == nil {
		return color.White
	}
	r, g, b, a := c.RGBA()
	if a == 0xffff {
		return c
	}
	if a == 0 {
		return color.White
	}
	// un-premultiply before forcing full alpha
	return color.RGBA64{
		R: uint16(r * 0xffff / a),
		G: uint16(g * 0xffff / a),
		B: uint16(b * 0xffff / a),
		A: 0xffff,
	}
}
