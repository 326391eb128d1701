package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

const (
	DefaultScale       = 2.0
	DefaultJPEGQuality = 98
	DefaultMaxPages    = 200
)

// placementTolerance absorbs float noise when the fitted width equals the content width.
const placementTolerance = 1e-6

// PaginateOptions configures how a bitmap is split into pages.
type PaginateOptions struct {
	Layout       PageLayout
	Scale        float64
	ReferenceDPI float64
	Encoding     Encoding
	Quality      int
	MaxPages     int
	Background   color.Color
}

func (o PaginateOptions) normalized() PaginateOptions {
	if o.Layout.Page.WidthMM == 0 && o.Layout.Page.HeightMM == 0 {
		o.Layout.Page = PageA4
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.ReferenceDPI <= 0 {
		o.ReferenceDPI = ReferenceDPI
	}
	if o.Encoding == "" {
		o.Encoding = EncodingJPEG
	}
	if o.Quality <= 0 {
		o.Quality = DefaultJPEGQuality
	}
	if o.Quality > 100 {
		o.Quality = 100
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	o.Background = Opaque(o.Background)
	return o
}

// unitsPerPixel is the physical size of one bitmap pixel at the oversampling scale.
func (o PaginateOptions) unitsPerPixel() float64 {
	return MillimetresPerPixel(o.ReferenceDPI) / o.Scale
}

// PlanPages computes fit scale, page height and page count for a width x height bitmap.
func PlanPages(width, height int, opts PaginateOptions) (PaginationStats, error) {
	opts = opts.normalized()
	if opts.Scale < 1 {
		return PaginationStats{}, NewError(KindValidation, fmt.Sprintf("oversampling scale %v is below 1", opts.Scale), nil)
	}
	if width <= 0 || height <= 0 {
		return PaginationStats{}, NewError(KindRenderFailed, fmt.Sprintf("bitmap has no area (%dx%d)", width, height), nil)
	}

	contentW, contentH := opts.Layout.ContentBox()
	if contentW <= 0 || contentH <= 0 {
		return PaginationStats{}, NewError(KindValidation, "page content box is empty", nil)
	}

	kS := opts.unitsPerPixel()
	renderedWidth := float64(width) * kS
	fitScale := math.Min(1, contentW/renderedWidth)
	pageHeightPx := int(math.Floor(contentH / (kS * fitScale)))
	if pageHeightPx <= 0 {
		return PaginationStats{}, NewError(KindValidation, "page height in pixels is not positive", nil)
	}

	totalPages := (height + pageHeightPx - 1) / pageHeightPx
	if totalPages < 1 {
		totalPages = 1
	}
	if totalPages > opts.MaxPages {
		return PaginationStats{}, NewError(KindValidation, fmt.Sprintf("document needs %d pages, limit is %d", totalPages, opts.MaxPages), nil)
	}

	return PaginationStats{
		SourceWidthPx:  width,
		SourceHeightPx: height,
		Scale:          opts.Scale,
		RenderedWidth:  renderedWidth,
		FitScale:       fitScale,
		PageHeightPx:   pageHeightPx,
		TotalPages:     totalPages,
	}, nil
}

// Place returns the page rectangle for a strip of stripHeight pixels.
func Place(stats PaginationStats, stripHeight int, opts PaginateOptions) Rect {
	opts = opts.normalized()
	kS := opts.unitsPerPixel()
	contentW, _ := opts.Layout.ContentBox()

	width := float64(stats.SourceWidthPx) * kS * stats.FitScale
	height := float64(stripHeight) * kS * stats.FitScale
	return Rect{
		X:      opts.Layout.Margins.Left + (contentW-width)/2,
		Y:      opts.Layout.Margins.Top,
		Width:  width,
		Height: height,
	}
}

// ValidatePlacement checks that r can be drawn on a page. Offsets within
// tolerance of zero are clamped.
func ValidatePlacement(r Rect) (Rect, error) {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return r, NewError(KindLayoutInvariant, fmt.Sprintf("placement is not finite: %+v", r), nil)
		}
	}
	if r.X < 0 && r.X > -placementTolerance {
		r.X = 0
	}
	if r.Y < 0 && r.Y > -placementTolerance {
		r.Y = 0
	}
	if r.X < 0 || r.Y < 0 {
		return r, NewError(KindLayoutInvariant, fmt.Sprintf("placement offset is negative: %+v", r), nil)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return r, NewError(KindLayoutInvariant, fmt.Sprintf("placement has no area: %+v", r), nil)
	}
	return r, nil
}

// Paginate slices img into page-height strips, encodes them and places each on the page.
// Either every page is returned or none.
func Paginate(ctx context.Context, img image.Image, opts PaginateOptions) ([]RasterPage, PaginationStats, error) {
	_ = ctx
	opts = opts.normalized()
	if img == nil {
		return nil, PaginationStats{}, NewError(KindRenderFailed, "no bitmap to paginate", nil)
	}

	bounds := img.Bounds()
	stats, err := PlanPages(bounds.Dx(), bounds.Dy(), opts)
	if err != nil {
		return nil, PaginationStats{}, err
	}

	pages := make([]RasterPage, 0, stats.TotalPages)
	for p := 0; p < stats.TotalPages; p++ {
		top := p * stats.PageHeightPx
		bottom := min(top+stats.PageHeightPx, stats.SourceHeightPx)
		stripHeight := bottom - top

		placement, err := ValidatePlacement(Place(stats, stripHeight, opts))
		if err != nil {
			return nil, PaginationStats{}, err
		}

		strip := cropStrip(img, top, stripHeight, opts.Background)
		encoded, err := encodeStrip(strip, opts)
		if err != nil {
			return nil, PaginationStats{}, NewError(KindInternal, fmt.Sprintf("encode page %d", p+1), err)
		}

		pages = append(pages, RasterPage{
			Index:     p,
			Encoded:   encoded,
			Encoding:  opts.Encoding,
			WidthPx:   stats.SourceWidthPx,
			HeightPx:  stripHeight,
			Placement: placement,
		})
	}
	return pages, stats, nil
}

func cropStrip(src image.Image, top, height int, bg color.Color) *image.RGBA {
	bounds := src.Bounds()
	strip := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), height))
	draw.Draw(strip, strip.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(strip, strip.Bounds(), src, image.Pt(bounds.Min.X, bounds.Min.Y+top), draw.Over)
	return strip
}

func encodeStrip(img image.Image, opts PaginateOptions) ([]byte, error) {
	var buf bytes.Buffer
	switch opts.Encoding {
	case EncodingPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case EncodingJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", opts.Encoding)
	}
	return buf.Bytes(), nil
}
