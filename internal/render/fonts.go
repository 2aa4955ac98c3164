package render

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
)

// FontRegistry parses canvas-embedded fonts once and hands out sized
// faces for rasterization. Unknown or unparseable fonts fall back to the
// bundled regular face so an export never fails over typography.
type FontRegistry struct {
	mu       sync.Mutex
	fallback *text.FontSource
	sources  map[string]*text.FontSource
}

func NewFontRegistry() (*FontRegistry, error) {
	fallback, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parsing fallback font: %w", err)
	}
	return &FontRegistry{
		fallback: fallback,
		sources:  make(map[string]*text.FontSource),
	}, nil
}

// Register parses one embedded canvas font. Formats the parser can't
// handle leave the registry untouched and report the error; rendering
// then uses the fallback face.
func (r *FontRegistry) Register(f canvas.Font) error {
	raw, err := decodeDataURL(f.DataURL)
	if err != nil {
		return fmt.Errorf("render: font %s: %w", f.ID, err)
	}
	src, err := text.NewFontSource(raw)
	if err != nil {
		return fmt.Errorf("render: font %s (%s): %w", f.ID, f.Format, err)
	}
	r.mu.Lock()
	r.sources[f.ID] = src
	r.mu.Unlock()
	return nil
}

// RegisterAll parses every canvas font, best effort, and returns the ids
// that failed.
func (r *FontRegistry) RegisterAll(fonts []canvas.Font) []string {
	var failed []string
	for _, f := range fonts {
		if err := r.Register(f); err != nil {
			failed = append(failed, f.ID)
		}
	}
	return failed
}

// Face returns a sized face for a font id, falling back to the bundled
// face for empty or unknown ids.
func (r *FontRegistry) Face(fontID string, size float64) text.Face {
	r.mu.Lock()
	src := r.sources[fontID]
	r.mu.Unlock()
	if src == nil {
		src = r.fallback
	}
	return src.Face(size)
}
