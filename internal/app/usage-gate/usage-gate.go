package usagegate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/usage-gate/internal/cache"
	"github.com/magabrotheeeer/usage-gate/internal/config"
	"github.com/magabrotheeeer/usage-gate/internal/lib/sl"
	"github.com/magabrotheeeer/usage-gate/internal/lib/token"
	"github.com/magabrotheeeer/usage-gate/internal/migrations"
	"github.com/magabrotheeeer/usage-gate/internal/rabbitmq"
	"github.com/magabrotheeeer/usage-gate/internal/ratelimit"
	analyticsservice "github.com/magabrotheeeer/usage-gate/internal/services/analytics"
	credentialservice "github.com/magabrotheeeer/usage-gate/internal/services/credential"
	featureservice "github.com/magabrotheeeer/usage-gate/internal/services/feature"
	planservice "github.com/magabrotheeeer/usage-gate/internal/services/plan"
	usageservice "github.com/magabrotheeeer/usage-gate/internal/services/usage"
	"github.com/magabrotheeeer/usage-gate/internal/storage"
)

// App инкапсулирует запущенные ресурсы приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение из конфигурации. Шина событий не является
// обязательной: при недоступном RabbitMQ приложение стартует без
// публикации событий учета.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var conn *amqp.Connection
	var ch *amqp.Channel
	var events usageservice.EventPublisher
	conn, err = rabbitmq.Connect(cfg.RabbitMQConnection, 5, 3*time.Second)
	if err != nil {
		logger.Warn("rabbitmq unavailable, usage events disabled", sl.Err(err))
	} else {
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.DefaultQueues)
		if err != nil {
			return nil, err
		}
		events = rabbitmq.NewPublisher(ch)
	}

	limiter := ratelimit.New(cacheRedis.Db, cfg.RateLimitWindow, cfg.RateLimitCeiling)
	tokens := token.Generator{}

	planService := planservice.NewPlanService(db, cacheRedis, logger)
	featureService := featureservice.NewFeatureService(db, logger)
	credentialService := credentialservice.NewCredentialService(db, planService, tokens, cfg.TokenTTL, logger)
	analyticsService := analyticsservice.NewAnalyticsService(db, logger)
	usageService := usageservice.NewUsageService(db, planService, db, db, limiter, tokens,
		events, cfg.TokenTTL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, usageService, planService, featureService,
		credentialService, analyticsService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeResources()
		return err
	}
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis client", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
