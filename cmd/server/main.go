package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"article-sync-server/internal/config"
	"article-sync-server/internal/handler"
	"article-sync-server/internal/logging"
	"article-sync-server/internal/middleware"
	"article-sync-server/internal/repository"
	"article-sync-server/internal/service"
	"article-sync-server/internal/upload"
	"article-sync-server/internal/websocket"
	"article-sync-server/pkg/hash"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(os.Stdout, cfg.Logging.Level, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStoreFromConfig(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	hasher, err := hash.New(cfg.Hash.Algorithm)
	if err != nil {
		logger.Error("invalid hash algorithm", "error", err)
		os.Exit(1)
	}

	localStore, err := upload.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
	if err != nil {
		logger.Error("failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		Logger:         logger,
	})
	go wsManager.Run(ctx)

	opts := service.Options{
		Hasher:   hasher,
		Logger:   logger,
		Locks:    service.NewKeyedMutex(),
		Notifier: wsManager,
	}

	versionService := service.NewVersionService(store.Versions, cfg.Versions.KeepCount, cfg.Versions.HistoryLimit, opts)
	statusService := service.NewSyncStatusService(store.Articles, opts)
	conflictService := service.NewConflictService(store.Articles, versionService, opts)
	articleService := service.NewArticleService(
		store.Articles,
		versionService,
		statusService,
		upload.NewPipeline(cfg.Upload.Concurrency, cfg.Upload.SourceDir),
		localStore.Upload,
		opts,
	)

	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(conflictService))

	articleHandler := handler.NewArticleHandler(articleService, logger)
	syncHandler := handler.NewSyncHandler(articleService, conflictService, statusService, versionService, logger)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret, cfg.WebSocket, logger)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	articleHandler.Register(api)
	syncHandler.Register(api)

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	uploadPrefix := strings.TrimSuffix(cfg.Upload.BaseURL, "/") + "/"
	if strings.HasPrefix(uploadPrefix, "/") {
		r.PathPrefix(uploadPrefix).Handler(http.StripPrefix(uploadPrefix, http.FileServer(http.Dir(localStore.Dir()))))
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr, "env", cfg.Server.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"article-sync-server"}`))
}
