package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/crosshair/internal/api"
	"github.com/inamate/crosshair/internal/collab"
	"github.com/inamate/crosshair/internal/config"
	mw "github.com/inamate/crosshair/internal/middleware"
	"github.com/inamate/crosshair/internal/preset"
	"github.com/inamate/crosshair/internal/scene"
	"github.com/inamate/crosshair/internal/storage/postgres"
	"github.com/inamate/crosshair/internal/storage/sqlite"
)

const playgroundSceneID = "scene_playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open scene store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.SeedSample {
		if err := seedPlayground(ctx, store); err != nil {
			slog.Error("seed playground scene", "error", err)
			os.Exit(1)
		}
	}

	presets, err := loadPresets(ctx, cfg.PresetsPath)
	if err != nil {
		slog.Error("load presets", "path", cfg.PresetsPath, "error", err)
		os.Exit(1)
	}

	sceneLoader := func(ctx context.Context, sceneID string) (*scene.Document, error) {
		return store.Get(ctx, sceneID)
	}
	sceneSaver := func(ctx context.Context, doc *scene.Document) (int, error) {
		return store.Put(ctx, doc)
	}

	hub := collab.NewHub(sceneLoader, sceneSaver, presets, slog.Default())
	go hub.Run()

	apiHandler := api.NewHandler(store, hub, presets)
	apiHandler.OnSaved = hub.Replace

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.CORSOrigins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	apiHandler.Routes(r.PathPrefix("/api").Subrouter())

	// WebSocket endpoint
	r.HandleFunc("/ws/scene/{sceneId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first so open crosshairs are cancelled and moved tokens saved
		hub.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (scene.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return scene.NewMemoryStore(), nil
	}
}

func seedPlayground(ctx context.Context, store scene.Store) error {
	_, err := store.Get(ctx, playgroundSceneID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, scene.ErrNotFound) {
		return err
	}
	_, err = store.Put(ctx, scene.NewSampleDocument(playgroundSceneID))
	return err
}

// loadPresets reads the presets file and keeps it hot-reloaded. A missing
// file yields an empty registry.
func loadPresets(ctx context.Context, path string) (*preset.Registry, error) {
	f, err := preset.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("presets file not found, starting without presets", "path", path)
		return preset.NewRegistry(nil), nil
	}
	if err != nil {
		return nil, err
	}
	registry := preset.NewRegistry(f)

	watcher, err := preset.NewWatcher(path, registry, slog.Default())
	if err != nil {
		slog.Warn("presets hot reload disabled", "error", err)
		return registry, nil
	}
	go func() {
		defer watcher.Close()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("preset watcher stopped", "error", err)
		}
	}()
	slog.Info("presets loaded", "path", path, "count", len(f.Presets))
	return registry, nil
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, origins []string) {
	sceneID := mux.Vars(r)["sceneId"]

	sc, err := hub.Join(r.Context(), sceneID)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			http.Error(w, "scene not found", http.StatusNotFound)
			return
		}
		slog.Error("load scene", "scene", sceneID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		hub.Evict(sceneID)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, sc, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
