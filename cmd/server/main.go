package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/inkwell/studio/backend-go/internal/asset"
	"github.com/inkwell/studio/backend-go/internal/config"
	"github.com/inkwell/studio/backend-go/internal/db"
	"github.com/inkwell/studio/backend-go/internal/export"
	"github.com/inkwell/studio/backend-go/internal/garment"
	mw "github.com/inkwell/studio/backend-go/internal/middleware"
	"github.com/inkwell/studio/backend-go/internal/quote"
	"github.com/inkwell/studio/backend-go/internal/studio"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if !cfg.IsProduction() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := garment.DefaultCatalog()

	opts, err := export.OptionsFromConfig(cfg.Export)
	if err != nil {
		slog.Error("export config", "error", err)
		os.Exit(1)
	}

	assetHandler := asset.NewHandler(cfg.AssetDir)
	store := asset.NewStore(cfg.AssetDir,
		asset.WithRemoteHosts(cfg.RemoteHosts()...),
		asset.WithMaxBytes(cfg.AssetMaxBytes),
	)
	compositor := export.NewCompositor(catalog, store, opts)

	var (
		cache      export.Cache
		redisCache *export.RedisCache
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("parse redis url", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()

		rc := export.NewRedisCache(client, "studio:export:", cfg.CacheTTL)
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, exports will not be cached", "error", err)
		} else {
			cache, redisCache = rc, rc
		}
	}
	exportService := export.NewService(compositor, cache)
	exportHandler := export.NewHandler(exportService, catalog)

	hub := studio.NewHub(catalog, exportService, cfg.Origins())
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/garments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"garments": catalog.All(),
			"colors":   garment.Colors(),
		})
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	r.HandleFunc("/export/design", exportHandler.ExportDesign).Methods("POST")

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}

		quoteHandler := quote.NewHandler(quote.NewService(quote.NewPgRepository(pool), exportService, catalog))
		r.HandleFunc("/quotes", quoteHandler.Create).Methods("POST")
		r.HandleFunc("/quotes/{quoteId}", quoteHandler.Get).Methods("GET")
		r.HandleFunc("/quotes/{quoteId}/preview/{side}", quoteHandler.Preview).Methods("GET")
	} else {
		slog.Warn("DATABASE_URL not set, quote endpoints disabled")
	}

	// WebSocket endpoint
	r.HandleFunc("/ws/studio", hub.HandleWebSocket)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
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

		// Close live sessions before draining HTTP
		hub.Stop()

		if redisCache != nil {
			stats := redisCache.Stats()
			slog.Info("export cache stats", "hits", stats.Hits, "misses", stats.Misses, "errors", stats.Errors)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
