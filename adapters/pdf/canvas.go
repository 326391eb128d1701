package exportpdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/goliatone/go-invoice-export/export"
)

// CanvasAssembler writes pages through the tdewolff/canvas PDF renderer.
// The writer starts on its creation page; later pages are appended before drawing.
type CanvasAssembler struct {
	Creator string
}

var _ export.Assembler = (*CanvasAssembler)(nil)

func (a *CanvasAssembler) Assemble(ctx context.Context, artifact *export.Artifact) ([]byte, error) {
	_ = ctx
	if err := checkArtifact(artifact); err != nil {
		return nil, err
	}

	creator := DefaultCreator
	if a != nil && a.Creator != "" {
		creator = a.Creator
	}

	page := artifact.Layout.Page
	var buf bytes.Buffer
	writer := pdf.New(&buf, page.WidthMM, page.HeightMM, nil)
	writer.SetInfo(artifact.Title, "", "", "", creator)

	for i, p := range artifact.Pages {
		img, _, err := image.Decode(bytes.NewReader(p.Encoded))
		if err != nil {
			return nil, export.NewError(export.KindInternal, fmt.Sprintf("decode page %d", i+1), err)
		}
		if i > 0 {
			writer.NewPage(page.WidthMM, page.HeightMM)
		}

		c := canvas.New(page.WidthMM, page.HeightMM)
		cctx := canvas.NewContext(c)
		cctx.SetCoordSystem(canvas.CartesianIV)
		dpmm := float64(img.Bounds().Dx()) / p.Placement.Width
		cctx.DrawImage(p.Placement.X, p.Placement.Y, img, canvas.DPMM(dpmm))
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, export.NewError(export.KindInternal, "write pdf", err)
	}
	return buf.Bytes(), nil
}
