package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

func newTestRenderer(t *testing.T, store blob.Store) *Renderer {
	t.Helper()
	if store == nil {
		store = blob.NewMemStore()
	}
	fonts, err := NewFontRegistry()
	if err != nil {
		t.Fatalf("NewFontRegistry: %v", err)
	}
	return New(NewBlobImages(store), fonts)
}

func testState(els ...*canvas.Element) *canvas.State {
	return &canvas.State{
		Artboards: []canvas.Artboard{
			{ID: "board-1", Name: "Test", Width: 100, Height: 100, Background: "#ffffff"},
		},
		Elements:           els,
		SelectedArtboardID: "board-1",
		SelectedElementIDs: []string{},
		Settings:           canvas.DefaultSettings(),
	}
}

func pixelAt(t *testing.T, img image.Image, x, y int) color.RGBA {
	t.Helper()
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRenderUnknownArtboard(t *testing.T) {
	r := newTestRenderer(t, nil)
	_, err := r.RenderImage(context.Background(), testState(), "ghost", Options{})
	if !errors.Is(err, ErrArtboardNotFound) {
		t.Errorf("err = %v, want ErrArtboardNotFound", err)
	}
}

func TestRenderShape(t *testing.T) {
	r := newTestRenderer(t, nil)
	st := testState(&canvas.Element{
		ID:         "sq",
		ArtboardID: "board-1",
		Type:       canvas.TypeShape,
		Position:   geometry.Point{X: 10, Y: 10},
		Size:       geometry.Size{Width: 50, Height: 50},
		Opacity:    1,
		Props:      &canvas.ShapeProps{Fill: "#ff0000"},
	})

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	if got := img.Bounds().Dx(); got != 100 {
		t.Fatalf("output width = %d, want 100", got)
	}

	inside := pixelAt(t, img, 30, 30)
	if inside.R < 200 || inside.G > 60 || inside.B > 60 {
		t.Errorf("pixel inside shape = %+v, want red", inside)
	}
	outside := pixelAt(t, img, 90, 90)
	if outside.R < 240 || outside.G < 240 || outside.B < 240 {
		t.Errorf("pixel outside shape = %+v, want white background", outside)
	}
}

func TestRenderSkipsInvisible(t *testing.T) {
	r := newTestRenderer(t, nil)
	hidden := false
	st := testState(&canvas.Element{
		ID:         "sq",
		ArtboardID: "board-1",
		Type:       canvas.TypeShape,
		Position:   geometry.Point{X: 0, Y: 0},
		Size:       geometry.Size{Width: 100, Height: 100},
		Opacity:    1,
		Visible:    &hidden,
		Props:      &canvas.ShapeProps{Fill: "#000000"},
	})

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	center := pixelAt(t, img, 50, 50)
	if center.R < 240 {
		t.Errorf("invisible element rendered: %+v", center)
	}
}

func TestRenderLayerOrder(t *testing.T) {
	r := newTestRenderer(t, nil)
	st := testState(
		&canvas.Element{
			ID: "top", ArtboardID: "board-1", Type: canvas.TypeShape, Layer: 1,
			Position: geometry.Point{X: 0, Y: 0}, Size: geometry.Size{Width: 100, Height: 100},
			Opacity: 1, Props: &canvas.ShapeProps{Fill: "#00ff00"},
		},
		&canvas.Element{
			ID: "bottom", ArtboardID: "board-1", Type: canvas.TypeShape, Layer: 0,
			Position: geometry.Point{X: 0, Y: 0}, Size: geometry.Size{Width: 100, Height: 100},
			Opacity: 1, Props: &canvas.ShapeProps{Fill: "#0000ff"},
		},
	)

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	center := pixelAt(t, img, 50, 50)
	if center.G < 200 || center.B > 60 {
		t.Errorf("pixel = %+v, want the higher layer (green) on top", center)
	}
}

func TestRenderScale(t *testing.T) {
	r := newTestRenderer(t, nil)
	img, err := r.RenderImage(context.Background(), testState(), "board-1", Options{Scale: 2})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
		t.Errorf("scaled output = %dx%d, want 200x200", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderPNGEncodes(t *testing.T) {
	r := newTestRenderer(t, nil)
	var buf bytes.Buffer
	if err := r.RenderPNG(context.Background(), testState(), "board-1", Options{}, &buf); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Bounds().Dx() != 100 {
		t.Errorf("decoded width = %d, want 100", decoded.Bounds().Dx())
	}
}

// solidPNG encodes a uniform image for blob-backed fixtures.
func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRenderImageContain(t *testing.T) {
	store := blob.NewMemStore()
	blue := color.RGBA{R: 0, G: 0, B: 255, A: 255}
	if err := store.Put(context.Background(), blob.Blob{
		ID: "asset_tall", ContentType: "image/png", Data: solidPNG(t, 10, 20, blue),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r := newTestRenderer(t, store)

	st := testState(&canvas.Element{
		ID:         "pic",
		ArtboardID: "board-1",
		Type:       canvas.TypeImage,
		Position:   geometry.Point{X: 0, Y: 0},
		Size:       geometry.Size{Width: 40, Height: 40},
		Opacity:    1,
		Props:      &canvas.ImageProps{Src: blob.Locator("asset_tall"), Fit: canvas.FitContain},
	})

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	// A 10x20 source in a 40x40 box scales to 20x40, centered at x=10..30.
	center := pixelAt(t, img, 20, 20)
	if center.B < 200 {
		t.Errorf("pixel inside the letterboxed image = %+v, want blue", center)
	}
	gutter := pixelAt(t, img, 4, 20)
	if gutter.B > 200 && gutter.R < 100 {
		t.Errorf("pixel in the letterbox gutter = %+v, want background", gutter)
	}
}

func TestRenderMissingImageFailsExport(t *testing.T) {
	r := newTestRenderer(t, nil)
	st := testState(&canvas.Element{
		ID:         "pic",
		ArtboardID: "board-1",
		Type:       canvas.TypeImage,
		Position:   geometry.Point{X: 0, Y: 0},
		Size:       geometry.Size{Width: 40, Height: 40},
		Opacity:    1,
		Props:      &canvas.ImageProps{Src: blob.Locator("asset_gone"), Fit: canvas.FitContain},
	})
	if _, err := r.RenderImage(context.Background(), st, "board-1", Options{}); err == nil {
		t.Error("export with an unresolvable image should fail")
	}
}

func TestRenderSlotPlaceholder(t *testing.T) {
	r := newTestRenderer(t, nil)
	st := testState(&canvas.Element{
		ID:         "slot",
		ArtboardID: "board-1",
		Type:       canvas.TypeSlot,
		Position:   geometry.Point{X: 0, Y: 0},
		Size:       geometry.Size{Width: 100, Height: 100},
		Opacity:    1,
		Props:      &canvas.SlotProps{},
	})

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	top := pixelAt(t, img, 50, 10)
	bottom := pixelAt(t, img, 50, 90)
	if top.R > 240 && top.G > 240 && top.B > 240 {
		t.Error("slot placeholder left the background untouched at the top")
	}
	if bottom.R > 240 && bottom.G > 240 && bottom.B > 240 {
		t.Error("slot placeholder left the background untouched at the bottom")
	}
	// The gradient runs violet to pink: red rises toward the bottom.
	if bottom.R <= top.R {
		t.Errorf("gradient direction wrong: top=%+v bottom=%+v", top, bottom)
	}
}

func TestRenderTextDrawsInk(t *testing.T) {
	r := newTestRenderer(t, nil)
	st := testState(&canvas.Element{
		ID:         "caption",
		ArtboardID: "board-1",
		Type:       canvas.TypeText,
		Position:   geometry.Point{X: 0, Y: 30},
		Size:       geometry.Size{Width: 100, Height: 40},
		Opacity:    1,
		Props: &canvas.TextProps{
			Text: "HELLO", FontSize: 24, Color: "#000000",
			TextAlign: canvas.AlignCenter, LineHeight: 1.2,
		},
	})

	img, err := r.RenderImage(context.Background(), st, "board-1", Options{})
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	ink := 0
	for y := 30; y < 70; y++ {
		for x := 0; x < 100; x++ {
			c := pixelAt(t, img, x, y)
			if c.R < 128 && c.G < 128 && c.B < 128 {
				ink++
			}
		}
	}
	if ink == 0 {
		t.Error("no dark pixels in the text band")
	}
}

func TestResolveDataURL(t *testing.T) {
	src := NewBlobImages(blob.NewMemStore())
	data := solidPNG(t, 2, 2, color.RGBA{R: 255, A: 255})

	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	img, err := src.Resolve(context.Background(), url)
	if err != nil {
		t.Fatalf("Resolve data url: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("decoded width = %d, want 2", img.Bounds().Dx())
	}

	if _, err := src.Resolve(context.Background(), "ftp://nope"); !errors.Is(err, ErrUnresolvable) {
		t.Errorf("err = %v, want ErrUnresolvable", err)
	}
}
