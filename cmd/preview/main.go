// Command preview runs the layout generator against a marketing kit and
// rasterizes every generated artboard, without a server or a browser.
//
// Usage: preview <kit.zip|kit-dir> [options]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/kit"
	"github.com/spinstudio/spinstudio/backend-go/internal/layout"
	"github.com/spinstudio/spinstudio/backend-go/internal/render"
)

var (
	flagSizes = flag.String("sizes", "300x250,320x480,728x90", "comma separated target sizes (WxH)")
	flagScale = flag.Float64("scale", 1, "output pixel scale")
	flagOut   = flag.String("out", "preview-out", "output directory")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <kit.zip|kit-dir> [options]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	kitPath := flag.Arg(0)

	uploads, err := readKit(kitPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading kit: %v\n", err)
		os.Exit(1)
	}

	assets, err := kit.Parse(uploads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing kit: %v\n", err)
		os.Exit(1)
	}

	sizes, err := parseSizes(*flagSizes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing sizes: %v\n", err)
		os.Exit(1)
	}

	// No blob store here, so images ride along as data URLs.
	summary := kit.Summarize(assets, func(a kit.Asset) string { return a.DataURL() })

	fmt.Printf("Generating layouts for %d sizes from %d assets\n", len(sizes), len(assets))
	res, err := layout.Generate(summary, sizes, func(percent int, phase string) {
		fmt.Printf("%3d%% %s\n", percent, phase)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating layouts: %v\n", err)
		os.Exit(1)
	}

	st := &canvas.State{
		Artboards:          res.Artboards,
		Fonts:              []canvas.Font{},
		Elements:           res.Elements,
		SelectedElementIDs: []string{},
		Settings:           canvas.DefaultSettings(),
	}
	if len(res.Artboards) > 0 {
		st.SelectedArtboardID = res.Artboards[0].ID
	}

	fonts, err := render.NewFontRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fonts: %v\n", err)
		os.Exit(1)
	}
	renderer := render.New(render.NewBlobImages(blob.NewMemStore()), fonts)

	if err := os.MkdirAll(*flagOut, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rendered := 0
	for _, board := range res.Artboards {
		outPath := filepath.Join(*flagOut, sanitizeName(board.Name)+".png")
		if err := renderBoard(ctx, renderer, st, board.ID, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", board.Name, err)
			continue
		}
		fmt.Printf("wrote %s (%dx%d)\n", outPath, board.Width, board.Height)
		rendered++
	}

	if rendered == 0 {
		fmt.Fprintln(os.Stderr, "Error: no artboard could be rendered")
		os.Exit(1)
	}
	fmt.Printf("Done: %d of %d artboards\n", rendered, len(res.Artboards))
}

func renderBoard(ctx context.Context, renderer *render.Renderer, st *canvas.State, boardID, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := renderer.RenderPNG(ctx, st, boardID, render.Options{Scale: *flagScale}, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	return f.Close()
}

// readKit loads either a single file (zip or plain asset) or every file
// in a directory, one level deep.
func readKit(path string) ([]kit.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []kit.Upload{{Name: filepath.Base(path), Data: data}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var uploads []kit.Upload
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, kit.Upload{Name: e.Name(), Data: data})
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files in %s", path)
	}
	return uploads, nil
}

func parseSizes(raw string) ([]layout.TargetSize, error) {
	var sizes []layout.TargetSize
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ws, hs, ok := strings.Cut(part, "x")
		if !ok {
			return nil, fmt.Errorf("size %q is not WxH", part)
		}
		w, err := strconv.Atoi(ws)
		if err != nil {
			return nil, fmt.Errorf("size %q is not WxH", part)
		}
		h, err := strconv.Atoi(hs)
		if err != nil {
			return nil, fmt.Errorf("size %q is not WxH", part)
		}
		sizes = append(sizes, layout.TargetSize{ID: part, Width: w, Height: h})
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return sizes, nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
