package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/dispatch"
	"github.com/openclaw/bridge/internal/httpapi"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/monitoring"
	"github.com/openclaw/bridge/internal/notify"
	"github.com/openclaw/bridge/internal/store"
	"github.com/openclaw/bridge/internal/upstream"
)

func main() {
	port := flag.String("port", "", "Override BRIDGE_PORT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Server.ClientKey == "" {
		logger.Warn("OPENCLAW_CLIENT_KEY is not set; every action request will be rejected")
	}

	metrics := monitoring.NewMetrics()

	bookmarks := store.NewBookmarks(cfg.Stores.BookmarksPath, logger)
	flashcards := store.NewFlashcards(cfg.Stores.FlashcardsPath, logger)
	completer := upstream.NewClient(cfg.OpenClaw, logger)
	sink := notify.New(cfg.Telegram, logger)

	dispatcher := dispatch.New(cfg.OpenClaw, completer, bookmarks, flashcards, sink, metrics, logger)
	srv := httpapi.NewServer(cfg, dispatcher, metrics, logger)

	logger.Info("starting openclaw-tools-bridge",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("upstreamConfigured", cfg.OpenClaw.BaseURL != ""),
		zap.Bool("telegramConfigured", sink.Configured()))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}
