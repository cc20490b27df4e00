package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/rtc-token-service/internal/api/http"
	"github.com/spec-kit/rtc-token-service/internal/api/http/handlers"
	"github.com/spec-kit/rtc-token-service/internal/auth"
	"github.com/spec-kit/rtc-token-service/internal/config"
	"github.com/spec-kit/rtc-token-service/internal/events"
	"github.com/spec-kit/rtc-token-service/internal/observability"
	"github.com/spec-kit/rtc-token-service/internal/persistence"
	"github.com/spec-kit/rtc-token-service/internal/repository"
	"github.com/spec-kit/rtc-token-service/internal/service"
	"github.com/spec-kit/rtc-token-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signerCreds := auth.SignerCredentials{AppID: cfg.Token.AppID, AppCertificate: cfg.Token.AppCertificate}
	rtcSigner, err := auth.NewRTCSigner(signerCreds)
	if err != nil {
		logger.Fatal("failed to build rtc signer", zap.Error(err))
	}
	rtmSigner, err := auth.NewRTMSigner(signerCreds)
	if err != nil {
		logger.Fatal("failed to build rtm signer", zap.Error(err))
	}
	logger.Info("signers ready", zap.Stringer("credentials", signerCreds))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var credentials repository.CredentialRepository
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		credentials = repository.NewCredentialRepository(pg.PoolHandle())
	} else {
		credentials = repository.NewMemoryCredentialRepository()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, cfg.Cache, logger)
	defer redis.Close()
	if redis.Enabled() {
		credentials = repository.NewCachedCredentialRepository(credentials, redis.Client, cfg.Cache.TTL(), logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewAsyncDispatcher(logger, cfg.Store.Workers, cfg.Store.QueueSize)
	recorder := service.NewCredentialRecorder(dispatcher, credentials, logger, metrics, cfg.Store)
	credentialWorker := worker.StartCredentialWorker(dispatcher, recorder, logger)

	tokenService := service.NewTokenService(*cfg, service.TokenDependencies{
		RTCSigner:   rtcSigner,
		RTMSigner:   rtmSigner,
		Credentials: credentials,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tokens:  handlers.NewTokenHandler(tokenService),
		Metrics: registry,
		Limiter: httptransport.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	credentialWorker.Stop(shutdownTimeout)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
