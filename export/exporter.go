package export

import (
	"context"
	"image/color"
	"time"

	"github.com/goliatone/go-invoice-export/document"
)

// DefaultSettleDelay is the pause between resource settle and rasterization.
const DefaultSettleDelay = 300 * time.Millisecond

// Options configures artifact production.
type Options struct {
	Layout       PageLayout
	Scale        float64
	ReferenceDPI float64
	Encoding     Encoding
	Quality      int
	MaxPages     int
	Background   color.Color
	SettleDelay  time.Duration
}

// DefaultOptions returns A4, no margin, 2x oversampling and JPEG quality 98.
func DefaultOptions() Options {
	return Options{
		Layout:       PageLayout{Page: PageA4},
		Scale:        DefaultScale,
		ReferenceDPI: ReferenceDPI,
		Encoding:     EncodingJPEG,
		Quality:      DefaultJPEGQuality,
		MaxPages:     DefaultMaxPages,
		Background:   color.White,
		SettleDelay:  DefaultSettleDelay,
	}
}

func (o Options) paginate() PaginateOptions {
	return PaginateOptions{
		Layout:       o.Layout,
		Scale:        o.Scale,
		ReferenceDPI: o.ReferenceDPI,
		Encoding:     o.Encoding,
		Quality:      o.Quality,
		MaxPages:     o.MaxPages,
		Background:   o.Background,
	}
}

func (o Options) raster() RasterOptions {
	return RasterOptions{
		Scale:        o.Scale,
		ReferenceDPI: o.ReferenceDPI,
		Background:   o.Background,
	}
}

// Exporter turns a document into a freshly built paginated artifact.
type Exporter struct {
	Views     *ViewRegistry
	Assembler Assembler
	Settler   Settler
	Options   Options
	Logger    Logger
	Wait      func(ctx context.Context, d time.Duration) error
}

// NewExporter creates an exporter with default options.
func NewExporter(views *ViewRegistry, assembler Assembler) *Exporter {
	return &Exporter{
		Views:     views,
		Assembler: assembler,
		Options:   DefaultOptions(),
		Logger:    NopLogger{},
		Wait:      sleepContext,
	}
}

// Build renders doc through the view registered under key and assembles every page.
// The detached target is released before Build returns, on every path.
func (e *Exporter) Build(ctx context.Context, key string, doc document.Document) (*Artifact, error) {
	if e == nil {
		return nil, NewError(KindInternal, "exporter is nil", nil)
	}
	if e.Logger == nil {
		e.Logger = NopLogger{}
	}
	if e.Wait == nil {
		e.Wait = sleepContext
	}
	if e.Assembler == nil {
		return nil, NewError(KindNotImpl, "page assembler not configured", nil)
	}
	if key == "" {
		key = DefaultViewKey
	}

	doc = doc.Clone()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	target, err := e.Views.Detach(ctx, key, doc)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewError(KindMissingRenderTarget, "view returned no target", nil)
	}
	defer func() {
		if rerr := target.Release(); rerr != nil {
			e.Logger.Errorf("release render target %s: %v", key, rerr)
		}
	}()

	settler := e.Settler
	if settler.Logger == nil {
		settler.Logger = e.Logger
	}
	report, err := settler.Settle(ctx, target.Resources())
	if err != nil {
		return nil, err
	}
	e.Logger.Debugf("export %s: %d resources loaded, %d failed", key, len(report.Loaded), len(report.Failed))

	if delay := e.Options.SettleDelay; delay > 0 {
		if err := e.Wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	bitmap, err := Rasterize(ctx, target, e.Options.raster())
	if err != nil {
		return nil, err
	}

	opts := e.Options.paginate()
	pages, stats, err := Paginate(ctx, bitmap, opts)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Title:    Title(doc.Number),
		Filename: Filename(doc.Number),
		Layout:   opts.normalized().Layout,
		Stats:    stats,
		Pages:    pages,
	}

	data, err := e.Assembler.Assemble(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, NewError(KindInternal, "assembler produced no output", nil)
	}
	artifact.Data = data

	e.Logger.Infof("export %s: %s, %d pages, %d bytes", key, artifact.Filename, len(pages), len(data))
	return artifact, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
