package exportcanvas

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/goliatone/go-invoice-export/document"
)

// Measurements in millimetres.
const (
	sheetPadding   = 8.5
	sectionGap     = 8.5
	headerGap      = 6.35
	cellPadding    = 3.2
	logoMaxHeight  = 21.2
	logoMaxWidth   = 84.7
	totalsMaxWidth = 101.6
	ruleWidth      = 0.3
)

var (
	colorInk    = canvas.Hex("#1f2937")
	colorBody   = canvas.Hex("#4b5563")
	colorMuted  = canvas.Hex("#6b7280")
	colorFaint  = canvas.Hex("#9ca3af")
	colorBand   = canvas.Hex("#f3f4f6")
	colorBorder = canvas.Hex("#e5e7eb")
)

// drawOp paints one element of the laid-out sheet.
type drawOp func(ctx *canvas.Context)

// sheet is a laid-out document: a display list plus its total height.
type sheet struct {
	width  float64
	height float64
	ops    []drawOp
}

type faces struct {
	name     typeface
	title    typeface
	heading  typeface
	body     typeface
	bodyInk  typeface
	strong   typeface
	medium   typeface
	grand    typeface
	tableHdr typeface
}

func newFaces(f *canvas.FontFamily) faces {
	return faces{
		name:     newTypeface(f, 22.5, colorInk, canvas.FontBold),
		title:    newTypeface(f, 27, colorFaint, canvas.FontBold),
		heading:  newTypeface(f, 10.5, colorMuted, canvas.FontBold),
		body:     newTypeface(f, 10.5, colorMuted, canvas.FontRegular),
		bodyInk:  newTypeface(f, 12, colorInk, canvas.FontRegular),
		strong:   newTypeface(f, 12, colorInk, canvas.FontBold),
		medium:   newTypeface(f, 12, colorBody, canvas.FontMedium),
		grand:    newTypeface(f, 15, colorInk, canvas.FontBold),
		tableHdr: newTypeface(f, 10.5, colorBody, canvas.FontBold),
	}
}

func (s *sheet) add(op drawOp) {
	s.ops = append(s.ops, op)
}

func (s *sheet) text(x, top float64, tf typeface, str string, align canvas.TextAlign) {
	if str == "" {
		return
	}
	s.add(func(ctx *canvas.Context) {
		line := canvas.NewTextLine(tf.face, str, align)
		ctx.DrawText(x, top+tf.face.Metrics().Ascent, line)
	})
}

// lines draws each string on its own line and returns the y below the last one.
func (s *sheet) lines(x, top float64, tf typeface, strs []string, align canvas.TextAlign) float64 {
	for _, str := range strs {
		s.text(x, top, tf, str, align)
		top += tf.lineHeight
	}
	return top
}

func (s *sheet) rect(x, y, w, h float64, fill color.Color) {
	s.add(func(ctx *canvas.Context) {
		ctx.SetFillColor(fill)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(x, y, canvas.Rectangle(w, h))
	})
}

func (s *sheet) rule(x, y, w, thickness float64, col color.Color) {
	s.rect(x, y, w, thickness, col)
}

func (s *sheet) image(x, y, w float64, img image.Image) {
	s.add(func(ctx *canvas.Context) {
		dpmm := float64(img.Bounds().Dx()) / w
		if dpmm <= 0 {
			dpmm = 1
		}
		ctx.DrawImage(x, y, img, canvas.DPMM(dpmm))
	})
}

// layout positions every element of vm on a sheet of the given width.
func layout(vm document.ViewModel, width float64, logo image.Image, f faces) *sheet {
	s := &sheet{width: width}
	left := sheetPadding
	right := width - sheetPadding
	contentW := right - left
	y := sheetPadding

	// header: issuer on the left, kind and number on the right
	leftY := y
	if logo != nil {
		w, h := fitLogo(logo.Bounds().Dx(), logo.Bounds().Dy())
		s.image(left, leftY, w, logo)
		leftY += h + 2
	}
	for _, line := range f.name.wrap(vm.IssuerName, contentW/2) {
		s.text(left, leftY, f.name, line, canvas.Left)
		leftY += f.name.lineHeight
	}
	leftY = s.lines(left, leftY+1, f.body, vm.IssuerLines, canvas.Left)
	leftY = s.lines(left, leftY+1, f.body, nonEmpty(vm.IssuerPhone), canvas.Left)

	rightY := y
	s.text(right, rightY, f.title, vm.Title, canvas.Right)
	rightY += f.title.lineHeight + 1
	s.text(right, rightY, f.body, "# "+vm.Number, canvas.Right)
	rightY += f.body.lineHeight

	y = math.Max(leftY, rightY) + headerGap
	s.rule(left, y, contentW, 0.5, colorBand)
	y += sectionGap

	// bill to and dates
	leftY = y
	s.text(left, leftY, f.heading, "BILL TO", canvas.Left)
	leftY += f.heading.lineHeight + 1
	for _, line := range f.strong.wrap(vm.Recipient, contentW/2-sectionGap) {
		s.text(left, leftY, f.strong, line, canvas.Left)
		leftY += f.strong.lineHeight
	}
	leftY = s.lines(left, leftY, f.body, vm.RecipientLines, canvas.Left)

	rightY = y
	labelX := left + contentW/2 + sectionGap/2
	dates := [][2]string{{vm.DateLabel, vm.IssueDate}}
	if vm.ShowDueDate {
		dates = append(dates, [2]string{"Due Date:", vm.DueDate})
	}
	for _, row := range dates {
		s.text(labelX, rightY, f.heading, row[0], canvas.Left)
		s.text(right, rightY, f.bodyInk, row[1], canvas.Right)
		rightY += f.bodyInk.lineHeight + 1
	}
	y = math.Max(leftY, rightY) + sectionGap

	y = layoutItems(s, vm.Items, left, y, contentW, f)
	y += sectionGap

	// totals box aligned right
	boxW := math.Min(totalsMaxWidth, contentW)
	boxX := right - boxW
	s.text(boxX, y, f.medium, "Subtotal:", canvas.Left)
	s.text(right, y, f.strong, vm.Subtotal, canvas.Right)
	y += f.medium.lineHeight + 2
	s.text(boxX, y, f.medium, vm.TaxLabel, canvas.Left)
	s.text(right, y, f.strong, vm.TaxAmount, canvas.Right)
	y += f.medium.lineHeight + 2
	s.rule(boxX, y, boxW, ruleWidth, colorBorder)
	y += 2
	bandH := f.grand.lineHeight + 2*cellPadding
	s.rect(boxX, y, boxW, bandH, colorBand)
	s.text(boxX+cellPadding, y+cellPadding, f.grand, "Total:", canvas.Left)
	s.text(right-cellPadding, y+cellPadding, f.grand, vm.Total, canvas.Right)
	y += bandH

	if vm.Notes != "" {
		y += sectionGap
		s.rule(left, y, contentW, ruleWidth, colorBand)
		y += headerGap
		s.text(left, y, f.heading, "NOTES", canvas.Left)
		y += f.heading.lineHeight + 2
		for _, para := range vm.NoteLines {
			wrapped := f.body.wrap(para, contentW)
			if len(wrapped) == 0 {
				y += f.body.lineHeight
				continue
			}
			y = s.lines(left, y, f.body, wrapped, canvas.Left)
		}
	}

	s.height = y + sheetPadding
	return s
}

// column layout of the items table as fractions of the content width
var itemColumns = [4]float64{0.5, 0.14, 0.18, 0.18}

func layoutItems(s *sheet, items []document.ItemRow, left, y, contentW float64, f faces) float64 {
	widths := [4]float64{}
	for i, frac := range itemColumns {
		widths[i] = contentW * frac
	}
	qtyCenter := left + widths[0] + widths[1]/2
	unitRight := left + widths[0] + widths[1] + widths[2] - cellPadding
	amountRight := left + contentW - cellPadding

	headerH := f.tableHdr.lineHeight + 2*cellPadding
	s.rect(left, y, contentW, headerH, colorBand)
	s.text(left+cellPadding, y+cellPadding, f.tableHdr, "Description", canvas.Left)
	s.text(qtyCenter, y+cellPadding, f.tableHdr, "Qty", canvas.Center)
	s.text(unitRight, y+cellPadding, f.tableHdr, "Unit Price", canvas.Right)
	s.text(amountRight, y+cellPadding, f.tableHdr, "Amount", canvas.Right)
	y += headerH

	for _, item := range items {
		desc := f.medium.wrap(item.Description, widths[0]-2*cellPadding)
		rows := max(len(desc), 1)
		rowH := float64(rows)*f.medium.lineHeight + 2*cellPadding

		s.lines(left+cellPadding, y+cellPadding, f.medium, desc, canvas.Left)
		s.text(qtyCenter, y+cellPadding, f.medium, item.Quantity, canvas.Center)
		s.text(unitRight, y+cellPadding, f.medium, item.UnitPrice, canvas.Right)
		s.text(amountRight, y+cellPadding, f.strong, item.Amount, canvas.Right)
		y += rowH
		s.rule(left, y-ruleWidth, contentW, ruleWidth, colorBand)
	}
	return y
}

// fitLogo scales a logo of w x h pixels into the logo box, keeping aspect ratio.
func fitLogo(w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	height := logoMaxHeight
	width := height * float64(w) / float64(h)
	if width > logoMaxWidth {
		width = logoMaxWidth
		height = width * float64(h) / float64(w)
	}
	return width, height
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}
