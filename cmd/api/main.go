package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hookrelay/hookrelay/config"
	"github.com/hookrelay/hookrelay/internal/app"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLoggerWithLevel(cfg.LogLevel)

	if err := run(cfg, appLogger); err != nil {
		appLogger.WithField("error", err.Error()).Fatal("Server exited with error")
	}
}

func run(cfg *config.Config, appLogger logger.Logger) error {
	appInstance := app.NewApp(cfg, app.WithLogger(appLogger))

	if err := appInstance.Initialize(); err != nil {
		return err
	}
	defer appInstance.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return appInstance.Start(ctx)
}
