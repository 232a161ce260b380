package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hookrelay/hookrelay/config"
	"github.com/hookrelay/hookrelay/internal/database"
	"github.com/hookrelay/hookrelay/internal/domain"
	httpHandler "github.com/hookrelay/hookrelay/internal/http"
	"github.com/hookrelay/hookrelay/internal/repository"
	"github.com/hookrelay/hookrelay/internal/service"
	"github.com/hookrelay/hookrelay/pkg/cache"
	"github.com/hookrelay/hookrelay/pkg/logger"
)

// App encapsulates the application dependencies and configuration
type App struct {
	config *config.Config
	logger logger.Logger
	db     *sql.DB
	cache  cache.Cache

	// Repositories
	subscriptionRepo domain.SubscriptionRepository
	webhookLogRepo   domain.WebhookLogRepository
	deliveryQueue    domain.DeliveryQueue

	// Services
	subscriptionService *service.SubscriptionService
	ingestService       *service.IngestService
	statusService       *service.StatusService
	deliveryWorker      *service.DeliveryWorker

	mux    *http.ServeMux
	server *http.Server
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithLogger sets a custom logger
func WithLogger(l logger.Logger) AppOption {
	return func(a *App) {
		a.logger = l
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) *App {
	a := &App{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logger.NewLoggerWithLevel(cfg.LogLevel)
	}

	return a
}

// Initialize sets up all application components in dependency order
func (a *App) Initialize() error {
	if err := a.InitDB(); err != nil {
		return err
	}
	a.InitCache()
	a.InitRepositories()
	a.InitServices()
	a.InitHandlers()
	return nil
}

// InitDB connects to PostgreSQL and ensures the schema exists
func (a *App) InitDB() error {
	db, err := database.Connect(a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.InitializeDatabase(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.db = db
	a.logger.Info("Database initialized")
	return nil
}

// InitCache selects the cache backend: Redis when REDIS_URL is configured,
// otherwise an in-process cache.
func (a *App) InitCache() {
	if a.config.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(a.config.Redis.URL)
		if err != nil {
			a.logger.WithField("error", err.Error()).Warn("Redis unavailable, using in-memory cache")
		} else {
			a.cache = redisCache
			a.logger.Info("Redis cache initialized")
			return
		}
	}

	a.cache = cache.NewInMemoryCache(time.Minute)
	a.logger.Info("In-memory cache initialized")
}

// InitRepositories creates the repository layer
func (a *App) InitRepositories() {
	a.subscriptionRepo = repository.NewSubscriptionRepository(a.db)
	a.webhookLogRepo = repository.NewWebhookLogRepository(a.db)
	a.deliveryQueue = repository.NewDeliveryQueueRepository(a.db)
}

// InitServices creates the service layer
func (a *App) InitServices() {
	a.subscriptionService = service.NewSubscriptionService(
		a.subscriptionRepo,
		a.cache,
		a.config.Delivery.SubscriptionCacheTTL,
		a.logger,
	)

	a.ingestService = service.NewIngestService(a.subscriptionService, a.deliveryQueue, a.logger)
	a.statusService = service.NewStatusService(a.webhookLogRepo, a.subscriptionRepo, a.logger)

	httpClient := &http.Client{Timeout: a.config.Delivery.WebhookTimeout}
	a.deliveryWorker = service.NewDeliveryWorker(
		a.deliveryQueue,
		a.webhookLogRepo,
		a.subscriptionService,
		httpClient,
		domain.RealClock{},
		a.logger,
		a.config.Delivery,
	)
}

// InitHandlers registers all HTTP routes
func (a *App) InitHandlers() {
	httpHandler.NewRootHandler(a.config.Version, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewIngestHandler(a.ingestService, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewSubscriptionHandler(a.subscriptionService, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewStatusHandler(a.statusService, a.logger).RegisterRoutes(a.mux)
	httpHandler.NewToolsHandler(a.logger).RegisterRoutes(a.mux)
}

// Start runs the HTTP server and the delivery worker until either fails or
// the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := a.deliveryWorker.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the worker and releases all resources
func (a *App) Shutdown() {
	if a.deliveryWorker != nil {
		a.deliveryWorker.Stop()
	}
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.logger.Info("Application shut down")
}

// GetConfig returns the application configuration
func (a *App) GetConfig() *config.Config { return a.config }

// GetMux returns the HTTP mux, used by tests to drive requests
func (a *App) GetMux() *http.ServeMux { return a.mux }

// GetDB returns the database handle
func (a *App) GetDB() *sql.DB { return a.db }
