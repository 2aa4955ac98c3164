package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
)

var ErrUnresolvable = errors.New("render: unresolvable image reference")

// ImageSource turns an element's src reference into decoded pixels.
type ImageSource interface {
	Resolve(ctx context.Context, ref string) (image.Image, error)
}

// BlobImages resolves "file://{id}" locators against the blob store and
// decodes inline data URLs directly.
type BlobImages struct {
	store blob.Store
}

func NewBlobImages(store blob.Store) *BlobImages {
	return &BlobImages{store: store}
}

func (s *BlobImages) Resolve(ctx context.Context, ref string) (image.Image, error) {
	if id, ok := blob.ParseLocator(ref); ok {
		b, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("render: fetching %s: %w", ref, err)
		}
		img, _, err := image.Decode(bytes.NewReader(b.Data))
		if err != nil {
			return nil, fmt.Errorf("render: decoding %s: %w", ref, err)
		}
		return img, nil
	}
	if strings.HasPrefix(ref, "data:") {
		raw, err := decodeDataURL(ref)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("render: decoding data url: %w", err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnresolvable, ref)
}

// decodeDataURL extracts the payload of a base64 data URL.
func decodeDataURL(s string) ([]byte, error) {
	_, payload, found := strings.Cut(s, ";base64,")
	if !found {
		return nil, fmt.Errorf("%w: not a base64 data url", ErrUnresolvable)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("render: base64 payload: %w", err)
	}
	return raw, nil
}
