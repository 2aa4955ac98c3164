// Package export serves rasterized artboards: a single PNG per board or
// one ZIP with every board in the document. A board that fails to draw
// is skipped so the rest of a batch still comes back.
package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/spinstudio/spinstudio/backend-go/internal/auth"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/middleware"
	"github.com/spinstudio/spinstudio/backend-go/internal/project"
	"github.com/spinstudio/spinstudio/backend-go/internal/render"
)

const maxScale = 4

type Handler struct {
	projects *project.Service
	renderer *render.Renderer
	fonts    *render.FontRegistry
}

func NewHandler(projects *project.Service, renderer *render.Renderer, fonts *render.FontRegistry) *Handler {
	return &Handler{projects: projects, renderer: renderer, fonts: fonts}
}

// Artboard handles GET /api/projects/{projectId}/export/{artboardId}.
func (h *Handler) Artboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["projectId"]
	artboardID := vars["artboardId"]
	userID := auth.UserIDFromContext(r.Context())

	p, st, ok := h.load(w, r, projectID, userID)
	if !ok {
		return
	}
	scale := parseScale(r.URL.Query().Get("scale"))

	var buf bytes.Buffer
	if err := h.renderer.RenderPNG(r.Context(), st, artboardID, render.Options{Scale: scale}, &buf); err != nil {
		middleware.CountExport("error")
		if errors.Is(err, render.ErrArtboardNotFound) {
			http.Error(w, "artboard not found", http.StatusNotFound)
			return
		}
		slog.Error("render artboard", "error", err, "project", projectID, "artboard", artboardID)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	middleware.CountExport("ok")

	name := sanitizeName(p.Name + "-" + artboardName(st, artboardID))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	slog.Info("export complete", "project", projectID, "artboard", artboardID, "size", buf.Len())
}

// Batch handles GET /api/projects/{projectId}/export. Every artboard in
// the document is rendered into one ZIP; boards that fail are skipped.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	userID := auth.UserIDFromContext(r.Context())

	p, st, ok := h.load(w, r, projectID, userID)
	if !ok {
		return
	}
	scale := parseScale(r.URL.Query().Get("scale"))

	type entry struct {
		name string
		data []byte
	}
	var entries []entry
	used := make(map[string]int)

	for _, board := range st.Artboards {
		var buf bytes.Buffer
		if err := h.renderer.RenderPNG(r.Context(), st, board.ID, render.Options{Scale: scale}, &buf); err != nil {
			middleware.CountExport("error")
			slog.Warn("skipping artboard in batch export", "error", err, "project", projectID, "artboard", board.ID)
			continue
		}
		middleware.CountExport("ok")
		entries = append(entries, entry{name: uniqueName(used, sanitizeName(board.Name)) + ".png", data: buf.Bytes()})
	}

	if len(entries) == 0 {
		http.Error(w, "no artboard could be rendered", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-export.zip"`, sanitizeName(p.Name)))

	zw := zip.NewWriter(w)
	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			slog.Error("create zip entry", "error", err, "name", e.name)
			return
		}
		if _, err := f.Write(e.data); err != nil {
			slog.Error("write zip entry", "error", err, "name", e.name)
			return
		}
	}
	if err := zw.Close(); err != nil {
		slog.Error("close zip", "error", err)
		return
	}

	slog.Info("export complete", "project", projectID, "artboards", len(entries), "of", len(st.Artboards))
}

// load fetches the project and its canvas, registers the document fonts
// and writes the error response itself when anything goes wrong.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, projectID, userID string) (*project.Project, *canvas.State, bool) {
	p, err := h.projects.Get(r.Context(), projectID, userID)
	if err != nil {
		writeServiceError(w, err)
		return nil, nil, false
	}
	st, err := h.projects.CanvasState(r.Context(), projectID, userID)
	if err != nil {
		writeServiceError(w, err)
		return nil, nil, false
	}
	if failed := h.fonts.RegisterAll(st.Fonts); len(failed) > 0 {
		slog.Warn("fonts fell back to bundled face", "project", projectID, "fonts", failed)
	}
	return p, st, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		http.Error(w, "project not found", http.StatusNotFound)
	case errors.Is(err, project.ErrForbidden):
		http.Error(w, "not your project", http.StatusForbidden)
	default:
		slog.Error("load project for export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func artboardName(st *canvas.State, artboardID string) string {
	for _, b := range st.Artboards {
		if b.ID == artboardID {
			return b.Name
		}
	}
	return artboardID
}

// sanitizeName keeps filenames shell and filesystem safe.
func sanitizeName(name string) string {
	if name == "" {
		return "artboard"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

// uniqueName suffixes repeated artboard names so zip entries never
// collide.
func uniqueName(used map[string]int, name string) string {
	used[name]++
	if used[name] == 1 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, used[name])
}

func parseScale(raw string) float64 {
	scale, err := strconv.ParseFloat(raw, 64)
	if err != nil || scale <= 0 || scale > maxScale {
		return 1
	}
	return scale
}
