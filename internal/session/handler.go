package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/spinstudio/spinstudio/backend-go/internal/auth"
	"github.com/spinstudio/spinstudio/backend-go/internal/project"
)

type Handler struct {
	hub      *Hub
	auth     *auth.Service
	projects *project.Service
	origins  []string
}

func NewHandler(hub *Hub, authSvc *auth.Service, projects *project.Service, originPatterns []string) *Handler {
	return &Handler{hub: hub, auth: authSvc, projects: projects, origins: originPatterns}
}

// Connect upgrades the request and joins the project's room. Browsers
// cannot set headers on websocket dials, so the token rides in the
// query string instead of an Authorization header.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := h.projects.Get(r.Context(), projectID, userID); err != nil {
		switch {
		case errors.Is(err, project.ErrNotFound):
			http.Error(w, "project not found", http.StatusNotFound)
		case errors.Is(err, project.ErrForbidden):
			http.Error(w, "not your project", http.StatusForbidden)
		default:
			slog.Error("project lookup", "error", err, "project", projectID)
			http.Error(w, "project lookup failed", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, projectID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
