package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spinstudio/spinstudio/backend-go/internal/asset"
	"github.com/spinstudio/spinstudio/backend-go/internal/auth"
	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/config"
	"github.com/spinstudio/spinstudio/backend-go/internal/export"
	mw "github.com/spinstudio/spinstudio/backend-go/internal/middleware"
	"github.com/spinstudio/spinstudio/backend-go/internal/project"
	"github.com/spinstudio/spinstudio/backend-go/internal/render"
	"github.com/spinstudio/spinstudio/backend-go/internal/session"
	"github.com/spinstudio/spinstudio/backend-go/internal/storage"
)

func main() {
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store storage.Store
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory storage")
		store = storage.NewMemory()
	} else {
		pg, err := storage.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		store = pg
	}

	blobs, err := blob.NewDirStore(cfg.BlobDir)
	if err != nil {
		slog.Error("open blob dir", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(store, blobs)
	projectHandler := project.NewHandler(projectService)

	fonts, err := render.NewFontRegistry()
	if err != nil {
		slog.Error("load fonts", "error", err)
		os.Exit(1)
	}
	renderer := render.New(render.NewBlobImages(blobs), fonts)
	exportHandler := export.NewHandler(projectService, renderer, fonts)

	assetHandler := asset.NewHandler(blobs)

	// The hub loads and saves documents through these closures. Both run
	// on the hub goroutine, so there is no request context to inherit.
	docLoader := func(projectID string) (*canvas.State, error) {
		p, err := store.Project(context.Background(), projectID)
		if err != nil {
			return nil, err
		}
		state, repaired := canvas.Hydrate(p.Document)
		if repaired {
			slog.Warn("document repaired on load", "project", projectID)
		}
		return state, nil
	}

	docSaver := func(projectID string, state *canvas.State) error {
		doc, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		_, err = store.SaveDocument(context.Background(), projectID, doc)
		return err
	}

	hub := session.NewHub(docLoader, docSaver, cfg.SessionSaveOps)
	go hub.Run()

	origins := splitOrigins(cfg.AllowedOrigins)
	sessionHandler := session.NewHandler(hub, authService, projectService, originPatterns(origins))

	mw.RegisterMetrics()
	limiter := mw.NewRateLimiter(float64(cfg.AuthRatePerSec), cfg.AuthRateBurst)
	go limiter.Cleanup()

	r := mux.NewRouter()
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.Metrics)

	// Public auth routes, rate limited per IP.
	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.Use(limiter.Middleware)
	authRoutes.HandleFunc("/register", authHandler.Register).Methods("POST")
	authRoutes.HandleFunc("/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Asset downloads are public so locators resolve without auth.
	r.HandleFunc("/assets/{assetId}", assetHandler.Serve).Methods("GET")

	// Everything under /api requires a bearer token.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Rename).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/canvas", projectHandler.GetCanvas).Methods("GET")
	api.HandleFunc("/projects/{projectId}/canvas", projectHandler.PutCanvas).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/generate", projectHandler.Generate).Methods("POST")
	api.HandleFunc("/projects/{projectId}/export", exportHandler.Batch).Methods("GET")
	api.HandleFunc("/projects/{projectId}/export/{artboardId}", exportHandler.Artboard).Methods("GET")

	api.HandleFunc("/assets", assetHandler.Upload).Methods("POST")
	api.HandleFunc("/assets/{assetId}", assetHandler.Delete).Methods("DELETE")

	// The editing socket authenticates via query token inside Connect.
	r.HandleFunc("/ws/project/{projectId}", sessionHandler.Connect)

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(origins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")

		// The hub stops before the listener so every dirty room
		// flushes its document while storage is still reachable.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// originPatterns reduces origin URLs to the host patterns the websocket
// accept check wants.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
