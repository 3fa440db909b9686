// Package sharecard renders the vertical story image used to share a plan.
package sharecard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Story canvas geometry.
const (
	Width        = 1080
	Height       = 1920
	PreviewWidth = 150

	margin    = 80
	titleTop  = 520
	qrSize    = 560
	qrTop     = 1160
	lineGap   = 24
	titleZoom = 6
	whenZoom  = 4
	placeZoom = 3
)

// ErrMissingURL is returned when a card has no link to encode.
var ErrMissingURL = errors.New("sharecard: plan url is required")

var (
	topColor    = color.RGBA{0x00, 0x00, 0x00, 0xff}
	bottomColor = color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	titleColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	whenColor   = color.RGBA{0xb3, 0xb3, 0xb3, 0xff}
)

// Card holds the text printed on a story image.
type Card struct {
	Title string
	When  string
	Place string
	URL   string
}

// Render draws the full size story image.
func Render(card Card) (*image.RGBA, error) {
	if strings.TrimSpace(card.URL) == "" {
		return nil, ErrMissingURL
	}

	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fillGradient(canvas)

	y := titleTop
	for _, line := range wrap(card.Title, maxRunes(titleZoom)) {
		y += drawCentered(canvas, line, y, titleZoom, titleColor, true) + lineGap
	}
	y += lineGap * 2
	if card.When != "" {
		y += drawCentered(canvas, card.When, y, whenZoom, whenColor, false) + lineGap
	}
	for _, line := range wrap(card.Place, maxRunes(placeZoom)) {
		y += drawCentered(canvas, line, y, placeZoom, whenColor, false) + lineGap
	}

	qr, err := qrcode.New(card.URL, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code := qr.Image(qrSize)
	left := (Width - qrSize) / 2
	top := qrTop
	if y+lineGap > top {
		top = y + lineGap
	}
	if top+qrSize > Height-margin {
		top = Height - margin - qrSize
	}
	draw.Draw(canvas, image.Rect(left, top, left+qrSize, top+qrSize), code, code.Bounds().Min, draw.Src)

	return canvas, nil
}

// PNG renders card and encodes it. A positive width scales the image down
// proportionally; zero keeps the full size.
func PNG(card Card, width int) ([]byte, error) {
	img, err := Render(card)
	if err != nil {
		return nil, err
	}

	var out image.Image = img
	if width > 0 && width < Width {
		height := width * Height / Width
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillGradient(dst *image.RGBA) {
	for y := 0; y < Height; y++ {
		c := color.RGBA{
			R: lerp(topColor.R, bottomColor.R, y),
			G: lerp(topColor.G, bottomColor.G, y),
			B: lerp(topColor.B, bottomColor.B, y),
			A: 0xff,
		}
		draw.Draw(dst, image.Rect(0, y, Width, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

func lerp(a, b uint8, y int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*y/(Height-1))
}

// drawCentered renders text with the basic bitmap face, scaled by zoom, and
// returns the height used.
func drawCentered(dst draw.Image, text string, top, zoom int, c color.Color, bold bool) int {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	w := font.MeasureString(face, text).Ceil() + 1
	h := metrics.Height.Ceil()
	if w <= 1 {
		return 0
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{Dst: glyphs, Src: image.NewUniform(c), Face: face, Dot: fixed.P(0, metrics.Ascent.Ceil())}
	d.DrawString(text)
	if bold {
		d.Dot = fixed.P(1, metrics.Ascent.Ceil())
		d.DrawString(text)
	}

	left := (Width - w*zoom) / 2
	if left < 0 {
		left = 0
	}
	target := image.Rect(left, top, left+w*zoom, top+h*zoom)
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
	return h * zoom
}

func maxRunes(zoom int) int {
	return (Width - 2*margin) / (basicfont.Face7x13.Advance * zoom)
}

// wrap breaks text into lines of at most limit runes, splitting on spaces
// and hard-splitting words that do not fit.
func wrap(text string, limit int) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			r := []rune(word)
			lines = append(lines, string(r[:limit]))
			word = string(r[limit:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= limit:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

var (
	weekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}
	months   = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}
)

// FormatWhen renders the plan instant as "sáb 14 mar · 18:30" in loc.
func FormatWhen(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return fmt.Sprintf("%s %d %s · %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Format("15:04"))
}
