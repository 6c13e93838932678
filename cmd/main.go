package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angeloszaimis/resilience/config"
	"github.com/angeloszaimis/resilience/internal/httpserver"
	"github.com/angeloszaimis/resilience/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("err", err))
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		AddSource:   cfg.Logging.AddSource,
		Environment: cfg.Server.Environment,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize", slog.Any("err", err))
		os.Exit(1)
	}
	a.start(ctx)

	if cfg.Workload.Enabled {
		go newWorkload(a, cfg.Workload).run(ctx)
	}

	srv, err := httpserver.New(httpserver.Config{
		Addr:            cfg.Server.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, setupRouter(a))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Admin server listening", slog.String("address", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting admin server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// loadConfig honours RESILIENCE_CONFIG_FILE before searching for
// config.yaml.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
