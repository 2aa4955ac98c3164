package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixProject  = "proj"
	PrefixArtboard = "board"
	PrefixElement  = "el"
	PrefixFont     = "font"
	PrefixAsset    = "asset"
	PrefixSnapshot = "snap"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewProjectID() string  { return New(PrefixProject) }
func NewArtboardID() string { return New(PrefixArtboard) }
func NewElementID() string  { return New(PrefixElement) }
func NewFontID() string     { return New(PrefixFont) }
func NewAssetID() string    { return New(PrefixAsset) }
func NewSnapshotID() string { return New(PrefixSnapshot) }

// Validate checks that an id parses and carries the expected prefix.
// Storage trusts its own ids; this guards ids arriving over the wire.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
