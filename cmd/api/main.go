// @title           Todo API
// @version         3.0
// @description     Multi-tenant todo API with optional encryption and security telemetry.
// @BasePath        /api
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

	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/app"
	"github.com/w0nsdoof/CloudDevelopment-midterm/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		port       string
	)
	pflag.StringVar(&configPath, "config", "", "YAML or .env config file read before the environment")
	pflag.StringVar(&port, "port", "", "HTTP port (overrides HTTP_PORT)")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if port != "" {
		cfg.HTTP.Port = port
	}

	logger := app.NewLogger(cfg.Log, os.Stderr)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("app init: %w", err)
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			_ = application.Close(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	return application.Close(ctx)
}
