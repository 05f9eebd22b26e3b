package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/app"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/config"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/server"
	"github.com/sirupsen/logrus"
)

// main runs the HTTP facade over the intent pipeline with graceful shutdown
func main() {
	logger := app.NewLogger("info")

	// load .env BEFORE anything reads os.Getenv
	app.LoadEnv(logger)

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	a, err := app.New(ctx, cfg, logger, app.Options{History: true, Events: true})
	if err != nil {
		logger.WithError(err).Fatal("failed to build engine")
	}
	defer a.Close()

	h := &server.Handlers{
		Engine:   a.Assembler,
		Registry: a.Registry,
		Flags:    a.Flags,
		Logger:   logger,
	}
	// a nil store must not become a non-nil interface
	if a.History != nil {
		h.History = a.History
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
}
