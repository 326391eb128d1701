package exportcanvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	_ "golang.org/x/image/webp"

	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// View lays the invoice out natively at the physical page width.
type View struct {
	Page   export.PageSize
	Logger export.Logger
}

var _ export.View = (*View)(nil)

// Detach snapshots doc into an independent target.
func (v *View) Detach(ctx context.Context, key string, doc document.Document) (export.Target, error) {
	_ = ctx
	page := export.PageA4
	logger := export.Logger(export.NopLogger{})
	if v != nil {
		if v.Page.WidthMM > 0 {
			page = v.Page
		}
		if v.Logger != nil {
			logger = v.Logger
		}
	}
	f, err := family()
	if err != nil {
		return nil, export.NewError(export.KindRenderFailed, "load fonts", err)
	}

	doc = doc.Clone()
	t := &target{
		key:    key,
		widthM: page.WidthMM,
		view:   doc.View(),
		faces:  newFaces(f),
		logger: logger,
	}
	if logo := doc.Issuer.Logo; logo != nil && len(logo.Data) > 0 {
		t.logoRes = &logoResource{name: key + " logo", data: logo.Data}
	}
	return t, nil
}

type target struct {
	key     string
	widthM  float64
	view    document.ViewModel
	faces   faces
	logoRes *logoResource
	logger  export.Logger

	mu       sync.Mutex
	released bool
}

func (t *target) Resources() []export.Resource {
	if t.logoRes == nil {
		return nil
	}
	return []export.Resource{t.logoRes}
}

// layout positions the snapshot, including the logo once it has loaded.
func (t *target) layout() *sheet {
	var logo image.Image
	if t.logoRes != nil {
		logo = t.logoRes.image()
	}
	return layout(t.view, t.widthM, logo, t.faces)
}

func (t *target) Rasterize(ctx context.Context, opts export.RasterOptions) (image.Image, error) {
	_ = ctx
	t.mu.Lock()
	released := t.released
	t.mu.Unlock()
	if released {
		return nil, export.NewError(export.KindMissingRenderTarget, fmt.Sprintf("render target %q already released", t.key), nil)
	}

	s := t.layout()
	if s.width <= 0 || s.height <= 0 {
		return nil, export.NewError(export.KindRenderFailed, "sheet has no area", nil)
	}

	c := canvas.New(s.width, s.height)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV)
	cctx.SetFillColor(export.Opaque(opts.Background))
	cctx.SetStrokeColor(canvas.Transparent)
	cctx.DrawPath(0, 0, canvas.Rectangle(s.width, s.height))
	for _, op := range s.ops {
		op(cctx)
	}

	scale, dpi := opts.Scale, opts.ReferenceDPI
	if scale <= 0 {
		scale = 1
	}
	if dpi <= 0 {
		dpi = export.ReferenceDPI
	}
	dpmm := scale * dpi / export.MillimetresPerInch
	img := rasterizer.Draw(c, canvas.DPMM(dpmm), canvas.DefaultColorSpace)
	t.logger.Debugf("canvas view %s rasterized %dx%d", t.key, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func (t *target) Release() error {
	t.mu.Lock()
	t.released = true
	t.mu.Unlock()
	return nil
}

// logoResource decodes the issuer logo. A logo that fails to decode is omitted.
type logoResource struct {
	name string
	data []byte

	mu      sync.Mutex
	decoded image.Image
}

func (r *logoResource) Name() string { return r.name }

func (r *logoResource) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(r.data))
	if err != nil {
		return fmt.Errorf("decode logo: %w", err)
	}
	r.mu.Lock()
	r.decoded = img
	r.mu.Unlock()
	return nil
}

func (r *logoResource) image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoded
}
