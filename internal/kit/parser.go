// Package kit ingests raw marketing-kit uploads (loose files or zip
// archives) into a flat asset list and distills that list into the
// one-line summary the layout generator consumes.
package kit

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

var ErrEmptyKit = errors.New("kit: no usable assets in upload")

// maxAssetBytes caps a single extracted file so a crafted archive can't
// balloon memory.
const maxAssetBytes = 20 << 20

// AssetKind discriminates parsed assets.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindText  AssetKind = "text"
)

// Asset is one usable file pulled out of an upload. Image assets carry
// raw bytes plus decoded dimensions; text assets carry their content.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        AssetKind `json:"kind"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	Content     string    `json:"content,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
}

// DataURL encodes an image asset inline for callers that don't persist
// blobs (the wasm build does this).
func (a Asset) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", a.ContentType, base64.StdEncoding.EncodeToString(a.Data))
}

// Upload is one raw file handed to the parser.
type Upload struct {
	Name string
	Data []byte
}

// Parse expands every upload into assets. Zip archives are walked one
// level deep; unrecognized file types are skipped rather than failing the
// whole kit. An upload set yielding nothing usable is an error, since the
// generator would have nothing to lay out.
func Parse(uploads []Upload) ([]Asset, error) {
	var assets []Asset
	for _, up := range uploads {
		if isZip(up.Name, up.Data) {
			expanded, err := parseArchive(up.Data)
			if err != nil {
				return nil, fmt.Errorf("kit: reading archive %s: %w", up.Name, err)
			}
			assets = append(assets, expanded...)
			continue
		}
		if a, ok := classifyFile(up.Name, up.Data); ok {
			assets = append(assets, a)
		}
	}
	if len(assets) == 0 {
		return nil, ErrEmptyKit
	}
	return assets, nil
}

func isZip(name string, data []byte) bool {
	if strings.EqualFold(path.Ext(name), ".zip") {
		return true
	}
	return http.DetectContentType(data) == "application/zip"
}

func parseArchive(data []byte) ([]Asset, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var assets []Asset
	for _, f := range r.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxAssetBytes))
		rc.Close()
		if err != nil {
			continue
		}
		if a, ok := classifyFile(path.Base(f.Name), content); ok {
			assets = append(assets, a)
		}
	}
	return assets, nil
}

// skipEntry drops archive noise: resource forks, hidden files, previews.
func skipEntry(name string) bool {
	base := path.Base(name)
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(base, ".")
}

// classifyFile turns one file into an asset, or reports it unusable.
func classifyFile(name string, data []byte) (Asset, bool) {
	if len(data) == 0 {
		return Asset{}, false
	}
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		a := Asset{
			ID:          typeid.NewAssetID(),
			Name:        name,
			Kind:        KindImage,
			ContentType: contentType,
			Data:        data,
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			a.Width, a.Height = cfg.Width, cfg.Height
		}
		return a, true
	case isTextFile(name, contentType, data):
		return Asset{
			ID:          typeid.NewAssetID(),
			Name:        name,
			Kind:        KindText,
			ContentType: "text/plain",
			Content:     strings.TrimSpace(string(data)),
		}, true
	default:
		return Asset{}, false
	}
}

func isTextFile(name, contentType string, data []byte) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".md", ".csv":
		return utf8.Valid(data)
	}
	return strings.HasPrefix(contentType, "text/plain") && utf8.Valid(data)
}
