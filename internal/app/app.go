// Package app assembles the service: configuration, storage, transport and
// the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avelkov/account-service/internal/auth"
	"github.com/avelkov/account-service/internal/config"
	"github.com/avelkov/account-service/internal/event"
	handlerhttp "github.com/avelkov/account-service/internal/handler/http"
	"github.com/avelkov/account-service/internal/repository/mongodb"
	"github.com/avelkov/account-service/internal/service"
	"github.com/avelkov/account-service/internal/storage"
	"github.com/avelkov/account-service/internal/storage/mediahost"
	"github.com/avelkov/account-service/internal/storage/memory"
	"github.com/avelkov/account-service/pkg/health"
)

const serviceName = "account-service"

// App holds the assembled service and its closeable resources.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	db     *mongodb.Mongo
	events *event.Producer
}

// New connects the dependencies and builds the HTTP server. The context
// bounds the initial MongoDB connection.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := mongodb.New(ctx, cfg.MongoURL)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	repo := mongodb.NewUserRepository(db)

	tokens := auth.NewManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
	)

	var media storage.Storage
	if cfg.MediaUploadURL != "" {
		media = mediahost.New(cfg.MediaUploadURL, cfg.MediaBaseURL, cfg.MediaAPIKey)
	} else {
		log.Warn("MEDIA_UPLOAD_URL not set, using in-memory media storage")
		media = memory.New(cfg.MediaBaseURL)
	}

	var producer *event.Producer
	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer = event.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		publisher = producer
	} else {
		log.Warn("KAFKA_BROKERS not set, event publishing disabled")
	}

	svc := service.NewUserService(repo, tokens, media, publisher, log)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("mongodb", db.Ping)

	router := handlerhttp.NewRouter(handlerhttp.RouterConfig{
		Auth:           handlerhttp.NewAuthHandler(svc, log),
		Users:          handlerhttp.NewUserHandler(svc, log),
		Guard:          handlerhttp.Authenticate(svc.ResolveAccessToken),
		Health:         healthHandler,
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		ServiceName:    serviceName,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:    cfg,
		logger: log,
		server: server,
		db:     db,
		events: producer,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (a *App) Run() error {
	a.logger.Info("http server listening",
		slog.Int("port", a.cfg.HTTPPort),
		slog.String("environment", a.cfg.Environment),
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes the broker and database
// connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
		}
	}

	if err := a.db.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect mongodb: %w", err))
	}

	return errors.Join(errs...)
}
