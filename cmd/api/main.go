// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/app"
	"github.com/capitalize-ai/leasing-assistant/internal/config"
	"github.com/capitalize-ai/leasing-assistant/internal/handler"
	"github.com/capitalize-ai/leasing-assistant/internal/mcpserver"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
	"github.com/capitalize-ai/leasing-assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "leasing-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if err := a.Chat.Warm(ctx); err != nil {
		log.Fatal("failed to warm conversation cache", zap.Error(err))
	}

	checks := []handler.Check{{Name: "database", Ping: a.Store.Ping}}
	if a.NATS != nil {
		checks = append(checks, handler.Check{Name: "nats", Ping: a.NATS.Ping})
	}

	routerCfg := handler.RouterConfig{
		Messages:          handler.NewMessageHandler(a.Chat, log.Named("http")),
		Health:            handler.NewHealthHandler(checks...),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            log,
	}
	if cfg.MCPEnabled {
		routerCfg.MCP = mcpserver.New(a.Registry, log).Handler()
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
