package exportchromium

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	exporttemplate "github.com/goliatone/go-invoice-export/adapters/template"
	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// initialViewportHeight only seeds layout; capture goes beyond the viewport.
const initialViewportHeight = 1123

// View renders the HTML invoice into an off-screen Chromium tab.
type View struct {
	Browser      *Browser
	HTML         *exporttemplate.Renderer
	Page         export.PageSize
	ReferenceDPI float64
	Timeout      time.Duration
	Logger       export.Logger
}

var _ export.View = (*View)(nil)

// Detach renders doc into a new tab and returns the element with id key.
func (v *View) Detach(ctx context.Context, key string, doc document.Document) (export.Target, error) {
	if v == nil || v.HTML == nil {
		return nil, export.NewError(export.KindMissingRenderTarget, "chromium view not configured", nil)
	}
	logger := v.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}

	renderer := *v.HTML
	renderer.TargetID = key
	if renderer.Page.WidthMM == 0 {
		renderer.Page = v.Page
	}
	if renderer.ReferenceDPI == 0 {
		renderer.ReferenceDPI = v.ReferenceDPI
	}
	html, err := renderer.RenderHTML(ctx, doc)
	if err != nil {
		return nil, err
	}

	tabCtx, closeTab, err := v.Browser.NewTab()
	if err != nil {
		return nil, export.NewError(export.KindInternal, "chromium engine init failed", err)
	}

	execCtx, cancel := v.scoped(tabCtx, ctx)
	defer cancel()

	widthPx := exporttemplate.PageWidthPx(renderer.Page, renderer.ReferenceDPI)
	selector := "#" + cssEscape(key)
	var present bool
	var imageCount int
	err = chromedp.Run(execCtx,
		chromedp.EmulateViewport(int64(widthPx), initialViewportHeight),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector)), &present),
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector+" img")), &imageCount),
	)
	if err != nil {
		closeTab()
		return nil, export.NewError(export.KindRenderFailed, "chromium render failed", err)
	}
	if !present {
		closeTab()
		return nil, export.NewError(export.KindMissingRenderTarget, fmt.Sprintf("render target %q not found", key), nil)
	}

	logger.Debugf("chromium view %s detached with %d images", key, imageCount)
	return &target{
		view:       v,
		tabCtx:     tabCtx,
		closeTab:   closeTab,
		selector:   selector,
		imageCount: imageCount,
	}, nil
}

func (v *View) scoped(tabCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	execCtx, cancel := linkContext(tabCtx, ctx)
	if v.Timeout <= 0 {
		return execCtx, cancel
	}
	timed, cancelTimeout := context.WithTimeout(execCtx, v.Timeout)
	return timed, func() {
		cancelTimeout()
		cancel()
	}
}

type target struct {
	view       *View
	tabCtx     context.Context
	closeTab   context.CancelFunc
	selector   string
	imageCount int
	release    sync.Once
}

func (t *target) Resources() []export.Resource {
	resources := make([]export.Resource, 0, t.imageCount)
	for i := 0; i < t.imageCount; i++ {
		resources = append(resources, &imageResource{target: t, index: i})
	}
	return resources
}

type elementBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (t *target) Rasterize(ctx context.Context, opts export.RasterOptions) (image.Image, error) {
	execCtx, cancel := t.view.scoped(t.tabCtx, ctx)
	defer cancel()

	var raw []byte
	var shot []byte
	err := chromedp.Run(execCtx,
		emulation.SetDefaultBackgroundColorOverride().WithColor(cdpColor(opts.Background)),
		chromedp.Evaluate(fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			if (!el) return null;
			const r = el.getBoundingClientRect();
			return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: el.scrollWidth, height: el.scrollHeight};
		})()`, jsString(t.selector)), &raw),
		chromedp.ActionFunc(func(ctx context.Context) error {
			box, err := decodeBox(raw)
			if err != nil {
				return err
			}
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithFromSurface(true).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height, Scale: opts.Scale}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, export.NewError(export.KindRenderFailed, "decode chromium capture", err)
	}
	return img, nil
}

func (t *target) Release() error {
	t.release.Do(func() {
		if t.closeTab != nil {
			t.closeTab()
		}
	})
	return nil
}

// imageResource waits for one <img> inside the target to load or fail.
type imageResource struct {
	target *target
	index  int
}

func (r *imageResource) Name() string {
	return fmt.Sprintf("%s img[%d]", r.target.selector, r.index)
}

func (r *imageResource) Load(ctx context.Context) error {
	execCtx, cancel := linkContext(r.target.tabCtx, ctx)
	defer cancel()

	script := fmt.Sprintf(`new Promise((resolve) => {
		const img = document.querySelectorAll(%s)[%d];
		if (!img) { resolve(false); return; }
		if (img.complete) { resolve(img.naturalWidth > 0); return; }
		img.addEventListener("load", () => resolve(true), {once: true});
		img.addEventListener("error", () => resolve(false), {once: true});
	})`, jsString(r.target.selector+" img"), r.index)

	var ok bool
	err := chromedp.Run(execCtx, chromedp.Evaluate(script, &ok, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if !ok {
		return fmt.Errorf("image %d failed to load", r.index)
	}
	return nil
}

func decodeBox(raw []byte) (elementBox, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return elementBox{}, export.NewError(export.KindMissingRenderTarget, "render target disappeared", nil)
	}
	var box elementBox
	if err := json.Unmarshal(raw, &box); err != nil {
		return elementBox{}, export.NewError(export.KindRenderFailed, "decode target bounds", err)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return elementBox{}, export.NewError(export.KindRenderFailed, fmt.Sprintf("render target has no area (%vx%v)", box.Width, box.Height), nil)
	}
	return box, nil
}

func cdpColor(c color.Color) *cdp.RGBA {
	r, g, b, _ := export.Opaque(c).RGBA()
	return &cdp.RGBA{R: int64(r >> 8), G: int64(g >> 8), B: int64(b >> 8), A: 1}
}

func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func cssEscape(id string) string {
	var buf bytes.Buffer
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r > 0x7f:
			buf.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			buf.WriteRune(r)
		default:
			fmt.Fprintf(&buf, `\%x `, r)
		}
	}
	return buf.String()
}
