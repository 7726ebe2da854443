package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/lumen-optics/storefront/internal/handlers"
	"github.com/lumen-optics/storefront/internal/platform/config"
	"github.com/lumen-optics/storefront/internal/platform/observability"
	"github.com/lumen-optics/storefront/internal/platform/profile"
	"github.com/lumen-optics/storefront/internal/repositories"
	filerepo "github.com/lumen-optics/storefront/internal/repositories/file"
	fsrepo "github.com/lumen-optics/storefront/internal/repositories/firestore"
	"github.com/lumen-optics/storefront/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	cartRepo, pingCart, cleanup, err := newCartRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise cart storage", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer cleanup()

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Clock:      time.Now,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			entry := observability.FromContext(ctx).Named("cart")
			zapFields := make([]zap.Field, 0, len(fields))
			for key, value := range fields {
				zapFields = append(zapFields, zap.Any(key, value))
			}
			entry.Info(event, zapFields...)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	healthRepo, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "cart_storage", Check: pingCart},
	})
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}
	healthService, err := services.NewHealthService(healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise health service", zap.Error(err))
	}

	cartHandlers := handlers.NewCartHandlers(cartService)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthService(healthService),
		handlers.WithHealthBuildInfo(buildInfoFromEnv(startedAt)),
	)

	profileMiddleware := profile.NewMiddleware(cfg.Profile.Header, cfg.Profile.Cookie)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartMiddlewares(profileMiddleware.Handler),
		handlers.WithCartRoutes(cartHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront cart api listening", zap.String("backend", cfg.Storage.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCartRepository selects the storage backend from configuration and returns
// the repository, its readiness probe, and a close function.
func newCartRepository(ctx context.Context, cfg config.Config) (repositories.CartRepository, func(context.Context) error, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendFile:
		repo, err := filerepo.NewCartRepository(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, repo.Ping, func() {}, nil

	case config.StorageBackendFirestore:
		var opts []option.ClientOption
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, nil, err
			}
		}
		if cfg.Firestore.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		repo, err := fsrepo.NewCartRepository(client, cfg.Firestore.CartCollection)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return repo, repo.Ping, func() { _ = client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("STOREFRONT_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("STOREFRONT_BUILD_COMMIT_SHA"))
	environment := strings.TrimSpace(os.Getenv("STOREFRONT_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
