package export

import (
	"context"
	"image"
	"image/color"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-invoice-export/document"
)

// DefaultViewKey is the lookup key of the invoice view.
const DefaultViewKey = "invoice-to-download"

// ReferenceDPI is the pixel density assumed at 1x scale.
const ReferenceDPI = 96.0

// MillimetresPerInch converts inches to millimetres.
const MillimetresPerInch = 25.4

// MillimetresPerPixel returns the physical size of one reference pixel at dpi.
func MillimetresPerPixel(dpi float64) float64 {
	if dpi <= 0 {
		dpi = ReferenceDPI
	}
	return MillimetresPerInch / dpi
}

// PageSize is a portrait page in millimetres.
type PageSize struct {
	Name     string
	WidthMM  float64
	HeightMM float64
}

var (
	PageA3     = PageSize{Name: "A3", WidthMM: 297, HeightMM: 420}
	PageA4     = PageSize{Name: "A4", WidthMM: 210, HeightMM: 297}
	PageA5     = PageSize{Name: "A5", WidthMM: 148, HeightMM: 210}
	PageLetter = PageSize{Name: "LETTER", WidthMM: 215.9, HeightMM: 279.4}
	PageLegal  = PageSize{Name: "LEGAL", WidthMM: 215.9, HeightMM: 355.6}
)

var pageSizes = map[string]PageSize{
	"A3":     PageA3,
	"A4":     PageA4,
	"A5":     PageA5,
	"LETTER": PageLetter,
	"LEGAL":  PageLegal,
}

// LookupPageSize resolves a page size by name (case-insensitive).
func LookupPageSize(name string) (PageSize, bool) {
	size, ok := pageSizes[strings.ToUpper(strings.TrimSpace(name))]
	return size, ok
}

// Margins are page margins in millimetres.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargins returns margins of v on every side.
func UniformMargins(v float64) Margins {
	return Margins{Top: v, Right: v, Bottom: v, Left: v}
}

// PageLayout is the physical layout every page of an artifact shares.
type PageLayout struct {
	Page    PageSize
	Margins Margins
}

// ContentBox returns the printable width and height.
func (l PageLayout) ContentBox() (float64, float64) {
	return l.Page.WidthMM - l.Margins.Left - l.Margins.Right,
		l.Page.HeightMM - l.Margins.Top - l.Margins.Bottom
}

// Encoding selects the strip image encoding.
type Encoding string

const (
	EncodingJPEG Encoding = "jpeg"
	EncodingPNG  Encoding = "png"
)

// ContentType returns the MIME type of the encoding.
func (e Encoding) ContentType() string {
	if e == EncodingPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Rect is a placement on a page in millimetres.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RasterPage is one encoded strip of the document bitmap.
type RasterPage struct {
	Index     int
	Encoded   []byte
	Encoding  Encoding
	WidthPx   int
	HeightPx  int
	Placement Rect
}

// PaginationStats records how the bitmap was split.
type PaginationStats struct {
	SourceWidthPx  int
	SourceHeightPx int
	Scale          float64
	RenderedWidth  float64
	FitScale       float64
	PageHeightPx   int
	TotalPages     int
}

// Artifact is the per-export result: page images, layout and the assembled file.
type Artifact struct {
	Title    string
	Filename string
	Layout   PageLayout
	Stats    PaginationStats
	Pages    []RasterPage
	Data     []byte
}

// ContentType is the MIME type of the assembled artifact.
const ContentType = "application/pdf"

// RasterOptions controls bitmap production.
type RasterOptions struct {
	Scale        float64
	ReferenceDPI float64
	Background   color.Color
}

// View renders documents into detachable targets.
type View interface {
	Detach(ctx context.Context, key string, doc document.Document) (Target, error)
}

// ViewFunc adapts a function to a View.
type ViewFunc func(ctx context.Context, key string, doc document.Document) (Target, error)

func (f ViewFunc) Detach(ctx context.Context, key string, doc document.Document) (Target, error) {
	if f == nil {
		return nil, NewError(KindMissingRenderTarget, "view not configured", nil)
	}
	return f(ctx, key, doc)
}

// Target is an off-screen, layout-stable copy of a rendered view.
type Target interface {
	Resources() []Resource
	Rasterize(ctx context.Context, opts RasterOptions) (image.Image, error)
	Release() error
}

// Resource is an embedded resource that finishes loading asynchronously.
type Resource interface {
	Name() string
	Load(ctx context.Context) error
}

// Assembler writes raster pages into a paginated document.
type Assembler interface {
	Assemble(ctx context.Context, artifact *Artifact) ([]byte, error)
}

// AssemblerFunc adapts a function to an Assembler.
type AssemblerFunc func(ctx context.Context, artifact *Artifact) ([]byte, error)

func (f AssemblerFunc) Assemble(ctx context.Context, artifact *Artifact) ([]byte, error) {
	if f == nil {
		return nil, NewError(KindNotImpl, "assembler not configured", nil)
	}
	return f(ctx, artifact)
}

// ArtifactMeta captures stored artifact metadata.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Filename    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore stores assembled artifacts for later download.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Logger is a minimal logging interface.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
