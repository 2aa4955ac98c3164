// Package render rasterizes artboards to bitmaps: the export pipeline
// draws every visible element in layer order onto an offscreen surface
// and encodes it as PNG. The live gameplay never renders here; slot
// elements become a placeholder gradient.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
)

var ErrArtboardNotFound = errors.New("render: artboard not found")

// Options tune one export.
type Options struct {
	// Scale is the device pixel ratio: 2 doubles the output resolution.
	// Zero or negative means 1.
	Scale float64
}

// Renderer rasterizes artboards. It is safe for concurrent use as long
// as the image source and font registry are.
type Renderer struct {
	images ImageSource
	fonts  *FontRegistry
}

func New(images ImageSource, fonts *FontRegistry) *Renderer {
	return &Renderer{images: images, fonts: fonts}
}

// RenderPNG rasterizes one artboard and writes the encoded PNG.
func (r *Renderer) RenderPNG(ctx context.Context, st *canvas.State, artboardID string, opts Options, w io.Writer) error {
	dc, err := r.render(ctx, st, artboardID, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}

// RenderImage rasterizes one artboard and returns the bitmap.
func (r *Renderer) RenderImage(ctx context.Context, st *canvas.State, artboardID string, opts Options) (image.Image, error) {
	dc, err := r.render(ctx, st, artboardID, opts)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), nil
}

func (r *Renderer) render(ctx context.Context, st *canvas.State, artboardID string, opts Options) (*gg.Context, error) {
	var board *canvas.Artboard
	for i := range st.Artboards {
		if st.Artboards[i].ID == artboardID {
			board = &st.Artboards[i]
			break
		}
	}
	if board == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtboardNotFound, artboardID)
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	dc := gg.NewContext(int(math.Round(float64(board.Width)*scale)), int(math.Round(float64(board.Height)*scale)))
	dc.Scale(scale, scale)

	bg := board.Background
	if bg == "" {
		bg = "#ffffff"
	}
	dc.SetHexColor(bg)
	dc.DrawRectangle(0, 0, float64(board.Width), float64(board.Height))
	dc.Fill()

	for _, el := range visibleByLayer(st, artboardID) {
		if err := ctx.Err(); err != nil {
			dc.Close()
			return nil, err
		}
		if err := r.drawElement(ctx, dc, el); err != nil {
			dc.Close()
			return nil, err
		}
	}
	return dc, nil
}

// visibleByLayer selects an artboard's visible elements in ascending
// layer order.
func visibleByLayer(st *canvas.State, artboardID string) []*canvas.Element {
	var els []*canvas.Element
	for _, el := range st.Elements {
		if el.ArtboardID == artboardID && el.IsVisible() {
			els = append(els, el)
		}
	}
	sort.SliceStable(els, func(i, j int) bool { return els[i].Layer < els[j].Layer })
	return els
}

func (r *Renderer) drawElement(ctx context.Context, dc *gg.Context, el *canvas.Element) error {
	dc.Push()
	defer dc.Pop()
	if el.Rotation != 0 {
		cx := el.Position.X + el.Size.Width/2
		cy := el.Position.Y + el.Size.Height/2
		dc.RotateAbout(el.Rotation*math.Pi/180, cx, cy)
	}

	switch p := el.Props.(type) {
	case *canvas.ShapeProps:
		drawShape(dc, el, p)
	case *canvas.SlotProps:
		drawSlot(dc, el)
	case *canvas.TextProps:
		r.drawText(dc, el, p)
	case *canvas.ImageProps:
		return r.drawImage(ctx, dc, el, p)
	}
	return nil
}

func drawShape(dc *gg.Context, el *canvas.Element, p *canvas.ShapeProps) {
	x, y := el.Position.X, el.Position.Y
	w, h := el.Size.Width, el.Size.Height
	radius := math.Min(p.Radius, math.Min(w, h)/2)

	setColor(dc, p.Fill, el.Opacity)
	rect(dc, x, y, w, h, radius)
	dc.Fill()

	if p.BorderWidth > 0 && p.BorderColor != "" {
		setColor(dc, p.BorderColor, el.Opacity)
		dc.SetLineWidth(p.BorderWidth)
		rect(dc, x, y, w, h, radius)
		dc.Stroke()
	}
}

// drawSlot paints the gameplay placeholder: a vertical violet-to-pink
// gradient, never the live engine.
func drawSlot(dc *gg.Context, el *canvas.Element) {
	x, y := el.Position.X, el.Position.Y
	w, h := el.Size.Width, el.Size.Height
	grad := gg.NewLinearGradientBrush(x, y, x, y+h).
		AddColorStop(0, withAlpha(gg.Hex("#7c3aed"), el.Opacity)).
		AddColorStop(1, withAlpha(gg.Hex("#ec4899"), el.Opacity))
	dc.SetFillBrush(grad)
	rect(dc, x, y, w, h, math.Min(w, h)*0.04)
	dc.Fill()
}

func (r *Renderer) drawImage(ctx context.Context, dc *gg.Context, el *canvas.Element, p *canvas.ImageProps) error {
	img, err := r.images.Resolve(ctx, p.Src)
	if err != nil {
		return fmt.Errorf("element %s: %w", el.ID, err)
	}
	iw := float64(img.Bounds().Dx())
	ih := float64(img.Bounds().Dy())
	if iw == 0 || ih == 0 {
		return nil
	}
	x, y := el.Position.X, el.Position.Y
	w, h := el.Size.Width, el.Size.Height

	buf := gg.ImageBufFromImage(img)
	opts := gg.DrawImageOptions{Interpolation: gg.InterpBilinear, Opacity: el.Opacity}
	if p.Fit == canvas.FitCover {
		// Scale to fill, cropping the source overflow symmetrically.
		s := math.Max(w/iw, h/ih)
		sw, sh := w/s, h/s
		sx, sy := (iw-sw)/2, (ih-sh)/2
		src := image.Rect(int(sx), int(sy), int(math.Ceil(sx+sw)), int(math.Ceil(sy+sh)))
		opts.SrcRect = &src
		opts.X, opts.Y = x, y
		opts.DstWidth, opts.DstHeight = w, h
	} else {
		// Contain: letterbox inside the element rect.
		s := math.Min(w/iw, h/ih)
		dw, dh := iw*s, ih*s
		opts.X = x + (w-dw)/2
		opts.Y = y + (h-dh)/2
		opts.DstWidth, opts.DstHeight = dw, dh
	}
	dc.DrawImageEx(buf, opts)
	return nil
}

func (r *Renderer) drawText(dc *gg.Context, el *canvas.Element, p *canvas.TextProps) {
	if strings.TrimSpace(p.Text) == "" {
		return
	}
	size := p.FontSize
	if size <= 0 {
		size = 16
	}
	face := r.fonts.Face(p.FontID, size)
	dc.SetFont(face)
	setColor(dc, p.Color, el.Opacity)

	lineFactor := p.LineHeight
	if lineFactor <= 0 {
		lineFactor = 1.2
	}
	advance := size * lineFactor
	lines := wrapLines(p.Text, face, el.Size.Width)
	if len(lines) == 0 {
		return
	}

	m := face.Metrics()
	blockHeight := advance*float64(len(lines)-1) + m.Ascent + m.Descent
	baseline := el.Position.Y + (el.Size.Height-blockHeight)/2 + m.Ascent

	for _, line := range lines {
		lw := lineWidth(line, face, p.LetterSpacing)
		var x float64
		switch p.TextAlign {
		case canvas.AlignLeft:
			x = el.Position.X
		case canvas.AlignRight:
			x = el.Position.X + el.Size.Width - lw
		default:
			x = el.Position.X + (el.Size.Width-lw)/2
		}
		if p.LetterSpacing != 0 {
			drawSpaced(dc, line, face, x, baseline, p.LetterSpacing)
		} else {
			dc.DrawString(line, x, baseline)
		}
		baseline += advance
	}
}

// wrapLines word-wraps each paragraph of the text to the box width.
func wrapLines(s string, face text.Face, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			lines = append(lines, "")
			continue
		}
		for _, wrapped := range text.WrapText(paragraph, face, maxWidth, text.WrapWordChar) {
			lines = append(lines, wrapped.Text)
		}
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineWidth(line string, face text.Face, letterSpacing float64) float64 {
	if letterSpacing == 0 {
		return face.Advance(line)
	}
	var w float64
	runes := []rune(line)
	for _, r := range runes {
		w += face.Advance(string(r))
	}
	if len(runes) > 1 {
		w += letterSpacing * float64(len(runes)-1)
	}
	return w
}

// drawSpaced renders rune by rune with a fixed gap, for letter-spaced
// captions like CTA labels.
func drawSpaced(dc *gg.Context, line string, face text.Face, x, baseline, spacing float64) {
	cx := x
	for _, r := range line {
		s := string(r)
		dc.DrawString(s, cx, baseline)
		cx += face.Advance(s) + spacing
	}
}

// rect adds a plain or rounded rectangle path.
func rect(dc *gg.Context, x, y, w, h, radius float64) {
	if radius > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, radius)
		return
	}
	dc.DrawRectangle(x, y, w, h)
}

// setColor applies a hex color with the element's opacity folded into
// the alpha channel.
func setColor(dc *gg.Context, hex string, opacity float64) {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	c := gg.Hex(hex)
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255*opacity)
}

// withAlpha scales a color's alpha for gradient stops.
func withAlpha(c gg.RGBA, opacity float64) gg.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	c.A *= opacity
	return c
}
