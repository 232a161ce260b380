package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hookrelay/hookrelay/config"
	"github.com/hookrelay/hookrelay/internal/database"
	"github.com/hookrelay/hookrelay/internal/repository"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// One-shot retention sweep, for running from cron instead of relying on the
// in-process sweep of the delivery worker.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLoggerWithLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		appLogger.WithField("error", err.Error()).Fatal("Failed to connect to database")
	}
	defer db.Close()

	cutoff := time.Now().UTC().Add(-time.Duration(cfg.Delivery.LogRetentionHours) * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := repository.NewWebhookLogRepository(db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		appLogger.WithField("error", err.Error()).Fatal("Retention sweep failed")
	}

	appLogger.WithFields(map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info(fmt.Sprintf("Removed %d webhook logs", deleted))
}
