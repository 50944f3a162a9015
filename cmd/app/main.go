package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch/cmd"
	"dispatch/internal/adapters/out/postgres"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := cmd.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	config, err := cmd.LoadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	engineConfig, err := cmd.LoadOrchestrationConfig(config.OrchestrationConfigPath)
	if err != nil {
		log.Fatalf("Invalid orchestration config: %v", err)
	}

	gormDB, err := gorm.Open(gormpostgres.Open(config.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	if err = postgres.Migrate(gormDB); err != nil {
		log.Fatalf("Cannot migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cmd.NewCompositionRoot(config, engineConfig, gormDB, logger)
	if err != nil {
		log.Fatalf("Cannot build application: %v", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("close failed", "error", closeErr)
		}
	}()

	e, err := app.CreateHTTPHandler(ctx)
	if err != nil {
		log.Fatalf("Cannot build HTTP handler: %v", err)
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Cannot start jobs: %v", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	startWebServer(ctx, group, e, config.HTTPPort, logger)

	group.Go(func() error {
		<-ctx.Done()
		jobManager.StopAll()
		logger.Info("scheduler stopped")
		return nil
	})

	if err = group.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func startWebServer(ctx context.Context, group *errgroup.Group, e *echo.Echo, port string, logger *slog.Logger) {
	group.Go(func() error {
		addr := fmt.Sprintf("0.0.0.0:%s", port)
		logger.Info("starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})
}
