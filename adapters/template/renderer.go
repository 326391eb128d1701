package exporttemplate

import (
	"bytes"
	"context"
	"io"
	"math"

	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// DefaultTemplateName is the embedded invoice template.
const DefaultTemplateName = "invoice.html"

// Renderer renders the HTML invoice view.
type Renderer struct {
	Templates    TemplateExecutor
	TemplateName string
	TargetID     string
	Page         export.PageSize
	ReferenceDPI float64
}

// TemplateData is the context passed to templates.
type TemplateData struct {
	Invoice     document.ViewModel
	TargetID    string
	PageWidthPx int
}

// NewRenderer returns a renderer backed by the embedded pongo2 templates.
func NewRenderer() (*Renderer, error) {
	templates, err := NewEmbeddedExecutor()
	if err != nil {
		return nil, err
	}
	return &Renderer{Templates: templates}, nil
}

// Render writes the HTML view of doc to w.
func (r Renderer) Render(ctx context.Context, w io.Writer, doc document.Document) error {
	_ = ctx
	if r.Templates == nil {
		return export.NewError(export.KindValidation, "template renderer requires templates", nil)
	}
	name := r.TemplateName
	if name == "" {
		name = DefaultTemplateName
	}
	if err := r.Templates.ExecuteTemplate(w, name, r.Data(doc)); err != nil {
		return export.NewError(export.KindRenderFailed, "render invoice template", err)
	}
	return nil
}

// RenderHTML renders doc into a byte slice.
func (r Renderer) RenderHTML(ctx context.Context, doc document.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(ctx, &buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Data builds the template context for doc.
func (r Renderer) Data(doc document.Document) TemplateData {
	targetID := r.TargetID
	if targetID == "" {
		targetID = export.DefaultViewKey
	}
	return TemplateData{
		Invoice:     doc.View(),
		TargetID:    targetID,
		PageWidthPx: PageWidthPx(r.Page, r.ReferenceDPI),
	}
}

// PageWidthPx is the page width in reference pixels, A4 when page is unset.
func PageWidthPx(page export.PageSize, dpi float64) int {
	if page.WidthMM <= 0 {
		page = export.PageA4
	}
	return int(math.Round(page.WidthMM / export.MillimetresPerPixel(dpi)))
}
