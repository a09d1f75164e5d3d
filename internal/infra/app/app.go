package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/domain"
	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/infra/config"
	kafkainfra "github.com/786262170/lumina-api/internal/infra/kafka"
	"github.com/786262170/lumina-api/internal/infra/logger"
	redisinfra "github.com/786262170/lumina-api/internal/infra/redis"
	"github.com/786262170/lumina-api/internal/infra/security"
	"github.com/786262170/lumina-api/internal/infra/telemetry"
	"github.com/786262170/lumina-api/internal/repository/memory"
	redisrepo "github.com/786262170/lumina-api/internal/repository/redis"
	"github.com/786262170/lumina-api/internal/transport/http/middleware"
	"github.com/786262170/lumina-api/internal/transport/http/routes"
	"github.com/786262170/lumina-api/internal/usecase"
)

// Application bundles the wired service graph and its lifecycle.
type Application struct {
	cfg         *config.AppConfig
	engine      *gin.Engine
	logger      *zap.Logger
	redis       *redisinfra.Client
	memoryStore *memory.RevocationStore
	producer    *kafkainfra.Producer
	tracer      *telemetry.TracerProvider
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &Application{cfg: cfg, logger: log}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		app.tracer = tracer
	}

	keyProvider, err := buildKeyProvider(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}

	codec, err := security.NewTokenCodec(keyProvider, security.TokenCodecOptions{
		Issuer:          cfg.App.Name,
		KID:             cfg.JWT.ActiveKID,
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	blacklist, watermarks, storeHealth, err := app.buildRevocationStores()
	if err != nil {
		return nil, err
	}

	revocationMetrics, err := telemetry.NewRevocationMetrics(telemetry.RevocationMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init revocation metrics: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	eventPublisher := app.buildEventPublisher()

	policy := domain.NewDegradationPolicy(
		domain.ParseDegradationPolicyMode(cfg.Revocation.DegradationPolicy),
	)

	degradation := usecase.NewDegradationController(log).WithMetrics(revocationMetrics)
	verifier := usecase.NewTokenVerifier(codec, blacklist, watermarks, policy, degradation, log).
		WithMetrics(revocationMetrics)
	sessions := usecase.NewSessionService(codec, verifier, blacklist, watermarks, eventPublisher, log).
		WithMetrics(revocationMetrics)

	app.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Sessions:    sessions,
		Verifier:    verifier,
		Codec:       codec,
		StoreHealth: storeHealth,
		HTTPMetrics: httpMetrics,
	})

	return app, nil
}

// buildKeyProvider loads signing keys from disk, falling back to an ephemeral
// key pair in development so the service starts without provisioning.
func buildKeyProvider(cfg *config.AppConfig, log *zap.Logger) (security.KeyProvider, error) {
	provider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err == nil {
		return provider, nil
	}

	if cfg.App.Env == "production" {
		return nil, err
	}

	log.Warn("signing keys not loadable, generating ephemeral key pair; tokens will not survive restarts",
		zap.String("key_directory", cfg.JWT.KeyDirectory),
		zap.Error(err),
	)

	private, genErr := rsa.GenerateKey(rand.Reader, 2048)
	if genErr != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", genErr)
	}

	return security.NewStaticKeyProvider(private, cfg.JWT.ActiveKID)
}

// buildRevocationStores selects the store backend. Redis is the normal path;
// development without Redis runs an in-process store; production without any
// store leaves the ports nil, which pins verification into degraded mode.
func (a *Application) buildRevocationStores() (port.TokenBlacklist, port.SubjectWatermarkStore, port.StoreHealth, error) {
	cfg := a.cfg

	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(cfg.Redis, a.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = client

		blacklist := redisrepo.NewTokenBlacklistStore(client.Client(), cfg.Redis.TokenPrefix, cfg.Redis.OpTimeout)
		watermarks := redisrepo.NewSubjectWatermarkRepository(client.Client(), cfg.Redis.SubjectPrefix, cfg.Redis.OpTimeout)
		return blacklist, watermarks, blacklist, nil
	}

	if cfg.App.Env != "production" {
		a.logger.Warn("redis disabled, using in-process revocation store; revocations do not propagate across instances")
		store := memory.NewRevocationStore()
		a.memoryStore = store
		return store, store, store, nil
	}

	a.logger.Warn("redis disabled in production, revocation checks are off and verification runs on expiry alone")
	return nil, nil, nil, nil
}

// buildEventPublisher selects Kafka when brokers are configured, otherwise
// the logging stub.
func (a *Application) buildEventPublisher() port.EventPublisher {
	cfg := a.cfg

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, a.logger)
		if err != nil {
			a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			return kafkainfra.NewStubPublisher(a.logger)
		}
		a.producer = producer
		a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		return kafkainfra.NewEventPublisher(producer, cfg.App, a.logger)
	}

	a.logger.Info("kafka brokers not configured, using stub publisher")
	return kafkainfra.NewStubPublisher(a.logger)
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.memoryStore != nil {
			a.memoryStore.Stop()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting lumina API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
