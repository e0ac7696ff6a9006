package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/earl/app/api"
	"github.com/lysyi3m/earl/app/cfg"
	"github.com/lysyi3m/earl/app/database"
	"github.com/lysyi3m/earl/app/feed"
	"github.com/lysyi3m/earl/app/parser"
	"github.com/lysyi3m/earl/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("Starting earl", "version", appCfg.Version, "db", appCfg.DBPath, "feeds_dir", appCfg.FeedsDir)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount())

	parserOpts := []parser.Option{parser.WithLogger(logger)}
	if appCfg.LenientIDs {
		parserOpts = append(parserOpts, parser.WithLenientIdentifiers())
	}

	env := &tasks.Env{
		FeedRepo:         database.NewFeedStore(db),
		ItemRepo:         database.NewItemStore(db),
		HTTPClient:       &http.Client{Timeout: 2 * time.Minute},
		UserAgent:        appCfg.UserAgent,
		Parser:           feed.NewParser(parserOpts...),
		Filterer:         feed.NewFilterer(),
		ContentExtractor: feed.NewContentExtractor(),
	}

	scheduler := tasks.NewScheduler(configCache, env,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	handler := api.NewHandler(configCache, env, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
