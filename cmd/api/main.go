package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/agency-listings/internal/api/http"
	"github.com/spec-kit/agency-listings/internal/api/http/handlers"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/cache"
	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/contracts"
	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/observability"
	"github.com/spec-kit/agency-listings/internal/persistence"
	"github.com/spec-kit/agency-listings/internal/repository"
	"github.com/spec-kit/agency-listings/internal/service"
	"github.com/spec-kit/agency-listings/internal/storage"
	"github.com/spec-kit/agency-listings/internal/worker"
)

const (
	blobStoreTimeout = 10 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	gridfs, err := storage.NewGridFSStore(mongo.Database, cfg.Mongo.Bucket)
	if err != nil {
		logger.Fatal("failed to open gridfs bucket", zap.Error(err))
	}
	blobs := storage.NewBreakerStore(gridfs, blobStoreTimeout, logger)
	urls := storage.URLMapper{BaseURL: cfg.App.PublicBaseURL}

	publisher := newPublisher(cfg.RabbitMQ, logger)
	defer publisher.Close() //nolint:errcheck

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartEventRelay(service.NewEventRelayService(dispatcher, publisher, metrics, logger))

	var gallery cache.Gallery = cache.Noop{}
	if cfg.Cache.Enabled {
		gallery = cache.NewRedisGallery(redis.Client, cfg.Cache.Prefix, cfg.Cache.TTL(), logger)
	}

	pool := pg.PoolHandle()
	agencyRepo := repository.NewAgencyRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	listingRepo := repository.NewListingRepository(pool)
	sessionRepo := repository.NewSessionRepository(redis.Client, clock)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(), clock)
	sessionMiddleware := auth.NewSessionMiddleware(tokens, userRepo, sessionRepo, cfg.Auth.CookieName, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		AgencyRepo:   agencyRepo,
		SessionRepo:  sessionRepo,
		TokenManager: tokens,
		Dispatcher:   dispatcher,
		Clock:        clock,
		Logger:       logger,
	})
	agencyService := service.NewAgencyService(service.AgencyDependencies{
		AgencyRepo:  agencyRepo,
		ListingRepo: listingRepo,
		BlobStore:   blobs,
		URLMapper:   urls,
		Gallery:     gallery,
		Dispatcher:  dispatcher,
		Clock:       clock,
		Logger:      logger,
	})
	listingService := service.NewListingService(service.ListingDependencies{
		ListingRepo: listingRepo,
		AgencyRepo:  agencyRepo,
		BlobStore:   blobs,
		URLMapper:   urls,
		Gallery:     gallery,
		Dispatcher:  dispatcher,
		Clock:       clock,
		Logger:      logger,
	})
	uploadService := service.NewUploadService(cfg.Upload, service.UploadDependencies{
		BlobStore: blobs,
		URLMapper: urls,
		Clock:     clock,
		Logger:    logger,
	})

	validator := contracts.MustNewValidator()
	cookie := auth.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.App.IsProduction()}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
			handlers.Dependency{Name: "blobStore", Pinger: uploadService},
		),
		Auth:        handlers.NewAuthHandler(authService, validator, cookie),
		Agencies:    handlers.NewAgenciesHandler(agencyService, validator),
		Listings:    handlers.NewListingsHandler(listingService, validator),
		Uploads:     handlers.NewUploadsHandler(uploadService),
		Session:     sessionMiddleware,
		Metrics:     metrics,
		RateLimiter: httptransport.NewRateLimiter(cfg.RateLimit, clock),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// newPublisher connects to the broker, falling back to logging events when
// no broker is configured or it cannot be reached.
func newPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) events.Publisher {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL not set, domain events are only logged")
		return events.LogPublisher{Logger: logger}
	}
	publisher, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		logger.Warn("unable to reach rabbitmq, domain events are only logged", zap.Error(err))
		return events.LogPublisher{Logger: logger}
	}
	logger.Info("publishing domain events", zap.String("exchange", cfg.Exchange))
	return publisher
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
