// Package blob stores uploaded binary assets (kit images, embedded
// fonts) and resolves the "file://{id}" locator strings that canvas
// elements carry instead of raw bytes.
package blob

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrInvalidID = errors.New("invalid blob id")
)

// locatorScheme prefixes every stored-file reference. Elements keep the
// locator, never the bytes, once an asset has been persisted.
const locatorScheme = "file://"

// Locator builds the reference string for a stored blob id.
func Locator(id string) string { return locatorScheme + id }

// ParseLocator extracts the blob id from a locator, reporting false for
// anything else (data URLs, plain paths).
func ParseLocator(loc string) (string, bool) {
	if !strings.HasPrefix(loc, locatorScheme) {
		return "", false
	}
	id := strings.TrimPrefix(loc, locatorScheme)
	return id, id != ""
}

// Blob is one stored file plus the metadata the asset endpoints serve it
// with.
type Blob struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId,omitempty"`
	Category    string `json:"category,omitempty"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Store persists blobs by id. Get returns ErrNotFound for unknown ids;
// Put overwrites silently.
type Store interface {
	Put(ctx context.Context, b Blob) error
	Get(ctx context.Context, id string) (Blob, error)
	Delete(ctx context.Context, id string) error
}
