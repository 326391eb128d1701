package exportpdf

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-invoice-export/export"
)

// DefaultCreator is written into the document info dictionary.
const DefaultCreator = "go-invoice-export"

const (
	AssemblerFPDF   = "fpdf"
	AssemblerCanvas = "canvas"
)

// New returns the assembler registered under name ("fpdf" when empty).
func New(name string) (export.Assembler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AssemblerFPDF:
		return &FPDFAssembler{}, nil
	case AssemblerCanvas:
		return &CanvasAssembler{}, nil
	default:
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("unknown page assembler %q", name), nil)
	}
}

// checkArtifact validates the artifact before any page is written.
func checkArtifact(artifact *export.Artifact) error {
	if artifact == nil || len(artifact.Pages) == 0 {
		return export.NewError(export.KindLayoutInvariant, "artifact has no pages", nil)
	}
	page := artifact.Layout.Page
	if page.WidthMM <= 0 || page.HeightMM <= 0 {
		return export.NewError(export.KindLayoutInvariant, "artifact has no page size", nil)
	}
	for i, p := range artifact.Pages {
		if len(p.Encoded) == 0 {
			return export.NewError(export.KindLayoutInvariant, fmt.Sprintf("page %d has no image data", i+1), nil)
		}
		if _, err := export.ValidatePlacement(p.Placement); err != nil {
			return err
		}
	}
	return nil
}
