package blob

import (
	"context"
	"errors"
	"testing"
)

func TestLocatorRoundTrip(t *testing.T) {
	loc := Locator("asset_01h2xcejqtf2nbrexx3vqjhp41")
	if loc != "file://asset_01h2xcejqtf2nbrexx3vqjhp41" {
		t.Errorf("Locator = %q", loc)
	}
	id, ok := ParseLocator(loc)
	if !ok || id != "asset_01h2xcejqtf2nbrexx3vqjhp41" {
		t.Errorf("ParseLocator = %q, %v", id, ok)
	}

	for _, bad := range []string{"", "file://", "data:image/png;base64,AAAA", "https://example.com/x.png"} {
		if _, ok := ParseLocator(bad); ok {
			t.Errorf("ParseLocator(%q) accepted", bad)
		}
	}
}

// storeSuite runs the Store contract against any implementation.
func storeSuite(t *testing.T, s Store) {
	ctx := context.Background()
	b := Blob{ID: "asset_1", ProjectID: "proj_1", Category: "kit", ContentType: "image/png", Data: []byte{1, 2, 3}}
	if err := s.Put(ctx, b); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "asset_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContentType != "image/png" || got.ProjectID != "proj_1" || got.Category != "kit" {
		t.Errorf("metadata lost: %+v", got)
	}
	if string(got.Data) != string(b.Data) {
		t.Errorf("data = %v, want %v", got.Data, b.Data)
	}

	if _, err := s.Get(ctx, "asset_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "asset_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "asset_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "asset_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestMemStore(t *testing.T) {
	storeSuite(t, NewMemStore())
}

func TestDirStore(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	storeSuite(t, s)
}

func TestDirStoreRejectsPathEscapes(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"", "../outside", "a/b", `a\b`} {
		if err := s.Put(ctx, Blob{ID: id, Data: []byte{1}}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Put(%q): err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestMemStoreCopiesData(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	data := []byte{1, 2, 3}
	if err := s.Put(ctx, Blob{ID: "asset_1", Data: data}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 99
	got, err := s.Get(ctx, "asset_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Data[0] != 1 {
		t.Error("stored blob aliases the caller's buffer")
	}
}
