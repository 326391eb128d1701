package exportchromium

import (
	"context"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	exporttemplate "github.com/goliatone/go-invoice-export/adapters/template"
	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	chromePath := os.Getenv("CHROME_BIN")
	if chromePath == "" {
		paths := []string{"google-chrome", "chromium", "chromium-browser"}
		for _, candidate := range paths {
			if path, err := exec.LookPath(candidate); err == nil {
				chromePath = path
				break
			}
		}
	}
	if chromePath == "" {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}

	return chromePath
}

func TestAllocatorOptionsFromArgs(t *testing.T) {
	opts := allocatorOptionsFromArgs([]string{"", "--", "--no-sandbox", "window-size=800,600", "  "})
	if len(opts) != 2 {
		t.Fatalf("expected 2 allocator options, got %d", len(opts))
	}
}

func TestDecodeBox(t *testing.T) {
	if _, err := decodeBox(nil); export.KindFromError(err) != export.KindMissingRenderTarget {
		t.Fatalf("expected missing_render_target, got %v", err)
	}
	if _, err := decodeBox([]byte("null")); export.KindFromError(err) != export.KindMissingRenderTarget {
		t.Fatalf("expected missing_render_target, got %v", err)
	}
	if _, err := decodeBox([]byte(`{"x":0,"y":0,"width":794,"height":0}`)); export.KindFromError(err) != export.KindRenderFailed {
		t.Fatalf("expected render_failed for zero height, got %v", err)
	}
	box, err := decodeBox([]byte(`{"x":0,"y":8,"width":794,"height":1200}`))
	if err != nil || box.Width != 794 || box.Y != 8 {
		t.Fatalf("unexpected box %+v %v", box, err)
	}
}

func TestCSSEscape(t *testing.T) {
	if got := cssEscape(export.DefaultViewKey); got != "invoice-to-download" {
		t.Fatalf("unexpected escape %q", got)
	}
	if got := cssEscape("1a"); got != `\31 a` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestCDPColorIsOpaque(t *testing.T) {
	c := cdpColor(color.Transparent)
	if c.R != 255 || c.G != 255 || c.B != 255 || c.A != 1 {
		t.Fatalf("expected opaque white, got %+v", c)
	}
	c = cdpColor(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	if c.R != 10 || c.G != 20 || c.B != 30 {
		t.Fatalf("unexpected color %+v", c)
	}
}

func TestDetachWithoutTemplate(t *testing.T) {
	v := &View{}
	if _, err := v.Detach(context.Background(), export.DefaultViewKey, document.Document{}); export.KindFromError(err) != export.KindMissingRenderTarget {
		t.Fatalf("expected missing_render_target, got %v", err)
	}
}

func TestChromiumViewRasterizes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	html, err := exporttemplate.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	browser := &Browser{BrowserPath: chromePath, Headless: true, Args: []string{"--no-sandbox"}}
	defer browser.Close()

	view := &View{Browser: browser, HTML: html, Page: export.PageA4, ReferenceDPI: export.ReferenceDPI, Timeout: 30 * time.Second}
	doc := document.New(time.Now())
	doc.Items[0].Quantity = 2
	doc.Items[0].UnitPrice = 25

	target, err := view.Detach(context.Background(), export.DefaultViewKey, doc)
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	defer target.Release()

	img, err := export.Rasterize(context.Background(), target, export.RasterOptions{Scale: 2, ReferenceDPI: export.ReferenceDPI})
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if img.Bounds().Dx() < 1500 || img.Bounds().Dy() <= 0 {
		t.Fatalf("unexpected bitmap bounds %v", img.Bounds())
	}

	bare, err := exporttemplate.NewPongoExecutor(map[string]string{
		exporttemplate.DefaultTemplateName: "<html><body><p>no target</p></body></html>",
	})
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	view.HTML = &exporttemplate.Renderer{Templates: bare}
	if _, err := view.Detach(context.Background(), export.DefaultViewKey, doc); export.KindFromError(err) != export.KindMissingRenderTarget {
		t.Fatalf("expected missing_render_target, got %v", err)
	}
}

func TestNewTabReportsStartFailure(t *testing.T) {
	b := &Browser{BrowserPath: filepath.Join(t.TempDir(), "no-such-chrome"), Headless: true}
	defer b.Close()

	if _, _, err := b.NewTab(); err == nil {
		t.Fatalf("expected an error when chromium cannot start")
	}
	// a failed start leaves nothing behind and is retried
	if _, _, err := b.NewTab(); err == nil {
		t.Fatalf("expected the retry to fail as well")
	}
}

func TestTabOutlivesDetachContext(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	renderer, err := exporttemplate.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	browser := &Browser{BrowserPath: chromePath, Headless: true, Args: []string{"no-sandbox"}}
	defer browser.Close()
	view := &View{Browser: browser, HTML: renderer, Page: export.PageA4, Timeout: 30 * time.Second}

	doc := document.New(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	for range 2 {
		ctx, cancel := context.WithCancel(context.Background())
		target, err := view.Detach(ctx, export.DefaultViewKey, doc)
		cancel()
		if err != nil {
			t.Fatalf("detach: %v", err)
		}
		img, err := target.Rasterize(context.Background(), export.RasterOptions{Scale: 1, ReferenceDPI: export.ReferenceDPI, Background: color.White})
		_ = target.Release()
		if err != nil {
			t.Fatalf("rasterize after the detach context ended: %v", err)
		}
		if img.Bounds().Dx() == 0 {
			t.Fatalf("empty capture")
		}
	}
}
