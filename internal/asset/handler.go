// Package asset exposes the upload and download endpoints for kit
// images. Files live in a blob.Store; elements reference them through
// locator strings rather than raw bytes.
package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// UploadResponse is returned from the upload endpoint. Locator is what
// image elements store in their src; URL is where the browser fetches
// the pixels.
type UploadResponse struct {
	ID      string `json:"id"`
	Locator string `json:"locator"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Name    string `json:"name"`
}

type Handler struct {
	blobs blob.Store
}

func NewHandler(blobs blob.Store) *Handler {
	return &Handler{blobs: blobs}
}

// Upload handles POST /api/assets (multipart form with "file" field).
// JPEG uploads are re-encoded so every stored asset is a PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "upload exceeds the 10MB limit", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `multipart field "file" is required`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		http.Error(w, "unsupported image type, upload PNG or JPEG", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "unreadable image: "+err.Error(), http.StatusBadRequest)
		return
	}
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		slog.Error("normalize upload to png", "error", err)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	assetID := typeid.NewAssetID()
	err = h.blobs.Put(r.Context(), blob.Blob{
		ID:          assetID,
		Category:    "upload",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	})
	if err != nil {
		slog.Error("store asset", "error", err)
		http.Error(w, "failed to store asset", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		ID:      assetID,
		Locator: blob.Locator(assetID),
		URL:     "/assets/" + assetID,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Name:    header.Filename,
	})
}

// Serve handles GET /assets/{assetId}. Asset ids are unique, so the
// response is immutable and cacheable forever.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["assetId"]
	if typeid.Validate(assetID, typeid.PrefixAsset) != nil {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}

	b, err := h.blobs.Get(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		slog.Error("load asset", "error", err, "asset", assetID)
		http.Error(w, "failed to load asset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(b.Data)
}

// Delete handles DELETE /api/assets/{assetId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["assetId"]
	if typeid.Validate(assetID, typeid.PrefixAsset) != nil {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}

	if err := h.blobs.Delete(r.Context(), assetID); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return
		}
		slog.Error("delete asset", "error", err, "asset", assetID)
		http.Error(w, "failed to delete asset", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
