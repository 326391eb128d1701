package exportpdf

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/goliatone/go-invoice-export/export"
)

// FPDFAssembler embeds each encoded strip as-is on its own page.
type FPDFAssembler struct {
	Creator string
	Now     func() time.Time
}

var _ export.Assembler = (*FPDFAssembler)(nil)

func (a *FPDFAssembler) Assemble(ctx context.Context, artifact *export.Artifact) ([]byte, error) {
	_ = ctx
	if err := checkArtifact(artifact); err != nil {
		return nil, err
	}

	page := artifact.Layout.Page
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: page.WidthMM, Ht: page.HeightMM},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(artifact.Title, true)
	doc.SetCreator(a.creator(), true)
	if a != nil && a.Now != nil {
		doc.SetCreationDate(a.Now())
	}

	for _, p := range artifact.Pages {
		name := fmt.Sprintf("page-%d", p.Index)
		opts := fpdf.ImageOptions{ImageType: imageType(p.Encoding)}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Encoded))
		doc.AddPage()
		doc.ImageOptions(name, p.Placement.X, p.Placement.Y, p.Placement.Width, p.Placement.Height, false, opts, 0, "")
		if err := doc.Error(); err != nil {
			return nil, export.NewError(export.KindInternal, fmt.Sprintf("write page %d", p.Index+1), err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, export.NewError(export.KindInternal, "write pdf", err)
	}
	return buf.Bytes(), nil
}

func (a *FPDFAssembler) creator() string {
	if a == nil || a.Creator == "" {
		return DefaultCreator
	}
	return a.Creator
}

func imageType(enc export.Encoding) string {
	if enc == export.EncodingPNG {
		return "PNG"
	}
	return "JPG"
}
