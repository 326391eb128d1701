package exportcanvas

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

// ptToMM converts font points to millimetres.
const ptToMM = 25.4 / 72

var (
	fontOnce   sync.Once
	fontFamily *canvas.FontFamily
	fontErr    error
)

// family returns the shared Go font family with regular, medium and bold faces.
func family() (*canvas.FontFamily, error) {
	fontOnce.Do(func() {
		f := canvas.NewFontFamily("go")
		for _, face := range []struct {
			data  []byte
			style canvas.FontStyle
		}{
			{goregular.TTF, canvas.FontRegular},
			{gomedium.TTF, canvas.FontMedium},
			{gobold.TTF, canvas.FontBold},
		} {
			if err := f.LoadFont(face.data, 0, face.style); err != nil {
				fontErr = fmt.Errorf("load go font: %w", err)
				return
			}
		}
		fontFamily = f
	})
	return fontFamily, fontErr
}

// typeface is a font face plus its line height in millimetres.
type typeface struct {
	face       *canvas.FontFace
	lineHeight float64
}

func newTypeface(f *canvas.FontFamily, sizePt float64, col color.Color, style canvas.FontStyle) typeface {
	return typeface{
		face:       f.Face(sizePt, col, style, canvas.FontNormal),
		lineHeight: sizePt * ptToMM * 1.4,
	}
}

func (t typeface) width(s string) float64 {
	return t.face.TextWidth(s)
}

// wrap splits s into lines no wider than limit, breaking on spaces and,
// for words longer than a line, between runes.
func (t typeface) wrap(s string, limit float64) []string {
	if s == "" {
		return nil
	}
	lines := []string{}
	current := ""
	for _, word := range splitWords(s) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if t.width(candidate) <= limit {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for t.width(word) > limit {
			head, tail := t.breakWord(word, limit)
			lines = append(lines, head)
			word = tail
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func (t typeface) breakWord(word string, limit float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && t.width(string(runes[:n+1])) <= limit {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

func splitWords(s string) []string {
	words := []string{}
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
